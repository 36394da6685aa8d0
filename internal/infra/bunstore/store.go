package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"classquiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Store is the durable quiz store over bun. The same implementation serves
// the default single-file SQLite database and an optional Postgres backend;
// the dialect comes in with the *bun.DB.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// OpenSQLite opens the local database file. Writes are serialized through a
// single connection so concurrent submissions never interleave on the file.
func OpenSQLite(path string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+path+"?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func (s *Store) CreateSession(ctx context.Context, teacherID, topic, subtopic string) (int64, error) {
	session := &domain.Session{
		TeacherID: teacherID,
		Topic:     topic,
		Subtopic:  subtopic,
		IsActive:  true,
	}
	if _, err := s.db.NewInsert().Model(session).Exec(ctx); err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	return session.ID, nil
}

func (s *Store) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	session := new(domain.Session)
	err := s.db.NewSelect().Model(session).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *Store) CloseSession(ctx context.Context, id int64) error {
	_, err := s.db.NewUpdate().
		Model((*domain.Session)(nil)).
		Set("is_active = ?", false).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (s *Store) ListSessionsByTeacher(ctx context.Context, teacherID string) ([]domain.Session, error) {
	var sessions []domain.Session
	err := s.db.NewSelect().
		Model(&sessions).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Order("id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) QuestionsByTopic(ctx context.Context, topic string) ([]domain.Question, error) {
	var questions []domain.Question
	err := s.db.NewSelect().
		Model(&questions).
		Where("topic = ?", topic).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("questions by topic: %w", err)
	}
	return questions, nil
}

func (s *Store) QuestionsForStudents(ctx context.Context, topic string) ([]domain.StudentQuestion, error) {
	questions, err := s.QuestionsByTopic(ctx, topic)
	if err != nil {
		return nil, err
	}
	views := make([]domain.StudentQuestion, 0, len(questions))
	for _, q := range questions {
		views = append(views, q.StudentView())
	}
	return views, nil
}

// LoadQuestionSet feeds the question caches: student views plus the correct
// letters for scoring, in one read.
func (s *Store) LoadQuestionSet(ctx context.Context, topic string) (domain.QuestionSet, error) {
	questions, err := s.QuestionsByTopic(ctx, topic)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	set := domain.QuestionSet{
		Topic:     topic,
		Questions: make([]domain.StudentQuestion, 0, len(questions)),
		Answers:   make(map[int64]string, len(questions)),
	}
	for _, q := range questions {
		set.Questions = append(set.Questions, q.StudentView())
		set.Answers[q.ID] = q.CorrectAnswer
	}
	return set, nil
}

func (s *Store) CorrectAnswer(ctx context.Context, questionID int64) (string, error) {
	var answer string
	err := s.db.NewSelect().
		Model((*domain.Question)(nil)).
		Column("correct_answer").
		Where("id = ?", questionID).
		Scan(ctx, &answer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("correct answer: %w", err)
	}
	return answer, nil
}

// SaveAnswer inserts one answer row. A duplicate (session, student, question)
// is dropped by the uniqueness constraint, never overwritten.
func (s *Store) SaveAnswer(ctx context.Context, rec *domain.AnswerRecord) error {
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

// SaveAnswers writes a whole submission in one transaction so a store failure
// leaves no partial submission behind.
func (s *Store) SaveAnswers(ctx context.Context, recs []domain.AnswerRecord) error {
	if len(recs) == 0 {
		return nil
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&recs).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("save answers: %w", err)
	}
	return nil
}

func (s *Store) HasStudentCompleted(ctx context.Context, sessionID int64, studentID string) (bool, error) {
	count, err := s.db.NewSelect().
		Model((*domain.AnswerRecord)(nil)).
		Where("session_id = ?", sessionID).
		Where("student_id = ?", studentID).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("has completed: %w", err)
	}
	return count > 0, nil
}

func (s *Store) CountDistinctParticipants(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := s.db.NewSelect().
		Model((*domain.AnswerRecord)(nil)).
		ColumnExpr("count(DISTINCT student_id)").
		Where("session_id = ?", sessionID).
		Scan(ctx, &count)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

// SkillStatistics groups answer rows by the joined question's skill tag.
// Only skill tags with at least one row are emitted, so the rate division is
// always defined. Question text never leaves this query.
func (s *Store) SkillStatistics(ctx context.Context, sessionID int64) ([]domain.SkillStat, error) {
	var stats []domain.SkillStat
	err := s.db.NewSelect().
		TableExpr("results AS r").
		ColumnExpr("q.skill_tag AS skill_tag").
		ColumnExpr("count(r.id) AS total_answers").
		ColumnExpr("sum(CASE WHEN r.is_correct THEN 1 ELSE 0 END) AS correct_answers").
		Join("JOIN questions AS q ON q.id = r.question_id").
		Where("r.session_id = ?", sessionID).
		GroupExpr("q.skill_tag").
		OrderExpr("q.skill_tag ASC").
		Scan(ctx, &stats)
	if err != nil {
		return nil, fmt.Errorf("skill statistics: %w", err)
	}
	for i := range stats {
		stats[i].SuccessRate = math.Round(float64(stats[i].CorrectAnswers)/float64(stats[i].TotalAnswers)*1000) / 10
	}
	return stats, nil
}

func (s *Store) AuthenticateUser(ctx context.Context, username, password string) (*domain.User, error) {
	user := new(domain.User)
	err := s.db.NewSelect().
		Model(user).
		Where("username = ?", username).
		Where("password = ?", password).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate user: %w", err)
	}
	return user, nil
}
