package app

import (
	"context"

	"classquiz-service/internal/domain"
)

// SessionStore abstracts durable session state (SQLite, Postgres, in-memory).
// Lookups for unknown ids return (nil, nil); errors are reserved for I/O
// failures, which callers must surface rather than swallow.
type SessionStore interface {
	CreateSession(ctx context.Context, teacherID, topic, subtopic string) (int64, error)
	GetSession(ctx context.Context, id int64) (*domain.Session, error)
	CloseSession(ctx context.Context, id int64) error
	ListSessionsByTeacher(ctx context.Context, teacherID string) ([]domain.Session, error)
}

// ResultStore holds submitted answers and the aggregates computed over them.
// SaveAnswers writes a whole submission atomically; rows that would violate
// the (session, student, question) uniqueness are dropped, not overwritten.
type ResultStore interface {
	SaveAnswer(ctx context.Context, rec *domain.AnswerRecord) error
	SaveAnswers(ctx context.Context, recs []domain.AnswerRecord) error
	HasStudentCompleted(ctx context.Context, sessionID int64, studentID string) (bool, error)
	CountDistinctParticipants(ctx context.Context, sessionID int64) (int, error)
	SkillStatistics(ctx context.Context, sessionID int64) ([]domain.SkillStat, error)
}

// QuestionSource serves the question set for a topic (from cache/backing store).
type QuestionSource interface {
	QuestionSet(ctx context.Context, topic string) (domain.QuestionSet, error)
}

// UserStore resolves flat username/password credentials. A failed match
// returns (nil, nil).
type UserStore interface {
	AuthenticateUser(ctx context.Context, username, password string) (*domain.User, error)
}
