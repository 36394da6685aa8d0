package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"classquiz-service/internal/domain"
)

// Store is an in-memory implementation of the full store contract. It backs
// unit tests and honors the same invariants as the durable store, including
// the one-row-per-(session, student, question) constraint.
type Store struct {
	mu            sync.RWMutex
	nextSessionID int64
	sessions      map[int64]*domain.Session
	questions     []domain.Question
	results       map[string]domain.AnswerRecord
	resultOrder   []string
	users         map[string]domain.User
	clock         func() time.Time
}

func NewStore(questions []domain.Question) *Store {
	qs := make([]domain.Question, len(questions))
	copy(qs, questions)
	for i := range qs {
		if qs[i].ID == 0 {
			qs[i].ID = int64(i + 1)
		}
	}
	return &Store{
		sessions:  make(map[int64]*domain.Session),
		questions: qs,
		results:   make(map[string]domain.AnswerRecord),
		users:     make(map[string]domain.User),
		clock:     time.Now,
	}
}

// SetClock is test-only for deterministic timestamps.
func (s *Store) SetClock(clock func() time.Time) {
	s.clock = clock
}

// AddUser seeds a credential row.
func (s *Store) AddUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = int64(len(s.users) + 1)
	s.users[user.Username] = user
}

func (s *Store) CreateSession(_ context.Context, teacherID, topic, subtopic string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSessionID++
	session := &domain.Session{
		ID:        s.nextSessionID,
		TeacherID: teacherID,
		Topic:     topic,
		Subtopic:  subtopic,
		CreatedAt: s.clock(),
		IsActive:  true,
	}
	s.sessions[session.ID] = session
	return session.ID, nil
}

func (s *Store) GetSession(_ context.Context, id int64) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *Store) CloseSession(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		session.IsActive = false
	}
	return nil
}

func (s *Store) ListSessionsByTeacher(_ context.Context, teacherID string) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []domain.Session
	for _, session := range s.sessions {
		if session.TeacherID == teacherID {
			sessions = append(sessions, *session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})
	return sessions, nil
}

func (s *Store) QuestionsByTopic(_ context.Context, topic string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var questions []domain.Question
	for _, q := range s.questions {
		if q.Topic == topic {
			questions = append(questions, q)
		}
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

func (s *Store) CorrectAnswer(_ context.Context, questionID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions {
		if q.ID == questionID {
			return q.CorrectAnswer, nil
		}
	}
	return "", nil
}

func answerKey(sessionID int64, studentID string, questionID int64) string {
	return fmt.Sprintf("%d/%s/%d", sessionID, studentID, questionID)
}

func (s *Store) SaveAnswer(_ context.Context, rec *domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(*rec)
	return nil
}

func (s *Store) SaveAnswers(_ context.Context, recs []domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.saveLocked(rec)
	}
	return nil
}

// saveLocked drops duplicates instead of overwriting, like the conflict
// clause in the durable store.
func (s *Store) saveLocked(rec domain.AnswerRecord) {
	key := answerKey(rec.SessionID, rec.StudentID, rec.QuestionID)
	if _, exists := s.results[key]; exists {
		return
	}
	rec.ID = int64(len(s.resultOrder) + 1)
	s.results[key] = rec
	s.resultOrder = append(s.resultOrder, key)
}

func (s *Store) HasStudentCompleted(_ context.Context, sessionID int64, studentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.results {
		if rec.SessionID == sessionID && rec.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CountDistinctParticipants(_ context.Context, sessionID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	students := make(map[string]struct{})
	for _, rec := range s.results {
		if rec.SessionID == sessionID {
			students[rec.StudentID] = struct{}{}
		}
	}
	return len(students), nil
}

func (s *Store) SkillStatistics(_ context.Context, sessionID int64) ([]domain.SkillStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skillByQuestion := make(map[int64]string, len(s.questions))
	for _, q := range s.questions {
		skillByQuestion[q.ID] = q.SkillTag
	}

	totals := make(map[string]*domain.SkillStat)
	for _, key := range s.resultOrder {
		rec := s.results[key]
		if rec.SessionID != sessionID {
			continue
		}
		skill, ok := skillByQuestion[rec.QuestionID]
		if !ok {
			continue
		}
		stat, ok := totals[skill]
		if !ok {
			stat = &domain.SkillStat{SkillTag: skill}
			totals[skill] = stat
		}
		stat.TotalAnswers++
		if rec.IsCorrect {
			stat.CorrectAnswers++
		}
	}

	stats := make([]domain.SkillStat, 0, len(totals))
	for _, stat := range totals {
		stat.SuccessRate = round1(float64(stat.CorrectAnswers) / float64(stat.TotalAnswers) * 100)
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].SkillTag < stats[j].SkillTag })
	return stats, nil
}

func (s *Store) AuthenticateUser(_ context.Context, username, password string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok || user.Password != password {
		return nil, nil
	}
	copied := user
	return &copied, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
