package domain

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Session is one teacher-initiated quiz instance scoped to a topic/subtopic.
// IsActive only ever transitions true->false.
type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	TeacherID string    `bun:"teacher_id,notnull" json:"teacherId"`
	Topic     string    `bun:"topic,notnull" json:"topic"`
	Subtopic  string    `bun:"subtopic,notnull" json:"subtopic"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	IsActive  bool      `bun:"is_active,notnull" json:"isActive"`
}

// Question is immutable seed data. Options holds an ordered "Letter) text" list
// delimited by '|'; the letter prefix is the canonical option identifier that
// CorrectAnswer and AnswerRecord.SelectedAnswer refer to.
type Question struct {
	bun.BaseModel `bun:"table:questions"`

	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	Text          string `bun:"question_text,notnull" json:"text"`
	CorrectAnswer string `bun:"correct_answer,notnull" json:"-"`
	SkillTag      string `bun:"skill_tag,notnull" json:"skillTag"`
	Topic         string `bun:"topic,notnull" json:"topic"`
	Options       string `bun:"options,notnull" json:"options"`
}

// StudentQuestion is the student-facing view of a question: no correct answer.
type StudentQuestion struct {
	ID       int64    `json:"id"`
	Text     string   `json:"text"`
	SkillTag string   `json:"skillTag"`
	Options  []Option `json:"options"`
}

// Option is a single parsed answer choice.
type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// ParseOptions splits a stored options string into its ordered choices.
func ParseOptions(raw string) []Option {
	parts := strings.Split(raw, "|")
	options := make([]Option, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		opt := Option{Letter: part[:1], Text: part}
		if idx := strings.Index(part, ")"); idx > 0 {
			opt.Text = strings.TrimSpace(part[idx+1:])
		}
		options = append(options, opt)
	}
	return options
}

// StudentView strips the correct answer off a question.
func (q Question) StudentView() StudentQuestion {
	return StudentQuestion{
		ID:       q.ID,
		Text:     q.Text,
		SkillTag: q.SkillTag,
		Options:  ParseOptions(q.Options),
	}
}

// QuestionSet bundles everything a quiz run needs for one topic: the student
// views in seed order and the correct letter per question id for scoring.
type QuestionSet struct {
	Topic     string            `json:"topic"`
	Questions []StudentQuestion `json:"questions"`
	Answers   map[int64]string  `json:"answers"`
}

// AnswerRecord is one student's answer to one question within a session.
// At most one row may exist per (session, student, question); a blank
// SelectedAnswer marks a question left unanswered at forced completion.
type AnswerRecord struct {
	bun.BaseModel `bun:"table:results"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	SessionID      int64     `bun:"session_id,notnull,unique:one_answer_per_question" json:"sessionId"`
	StudentID      string    `bun:"student_id,notnull,unique:one_answer_per_question" json:"studentId"`
	QuestionID     int64     `bun:"question_id,notnull,unique:one_answer_per_question" json:"questionId"`
	SelectedAnswer string    `bun:"selected_answer" json:"selectedAnswer"`
	IsCorrect      bool      `bun:"is_correct,notnull" json:"isCorrect"`
	AnsweredAt     time.Time `bun:"answered_at,nullzero,notnull,default:current_timestamp" json:"answeredAt"`
}

// User is a flat credential row; exact string match only.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,unique,notnull" json:"username"`
	Password string `bun:"password,notnull" json:"-"`
	Role     string `bun:"role,notnull" json:"role"`
}

// SkillStat aggregates answers for one skill tag. It deliberately carries no
// question text.
type SkillStat struct {
	SkillTag       string  `json:"skillTag"`
	TotalAnswers   int     `json:"totalAnswers"`
	CorrectAnswers int     `json:"correctAnswers"`
	SuccessRate    float64 `json:"successRate"`
}

// AggregatedResults is the input shape for report generation and the teacher
// dashboard.
type AggregatedResults struct {
	SessionID          int64       `json:"sessionId"`
	Topic              string      `json:"topic"`
	Subtopic           string      `json:"subtopic"`
	ParticipantCount   int         `json:"participantCount"`
	OverallSuccessRate float64     `json:"overallSuccessRate"`
	SkillBreakdown     []SkillStat `json:"skillBreakdown"`
}
