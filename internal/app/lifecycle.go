package app

import (
	"context"
	"fmt"

	"classquiz-service/internal/domain"
)

// SessionService owns the session lifecycle: Created(active) -> Closed.
// Closed is terminal; the active flag never flips back.
type SessionService struct {
	store SessionStore
}

func NewSessionService(store SessionStore) *SessionService {
	return &SessionService{store: store}
}

// Start inserts a new active session and returns its id. Multiple concurrent
// active sessions per teacher are allowed.
func (s *SessionService) Start(ctx context.Context, teacherID, topic, subtopic string) (int64, error) {
	if teacherID == "" || topic == "" || subtopic == "" {
		return 0, fmt.Errorf("teacher id, topic and subtopic are required")
	}
	return s.store.CreateSession(ctx, teacherID, topic, subtopic)
}

// Get returns the session or ErrSessionNotFound.
func (s *SessionService) Get(ctx context.Context, id int64) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close marks a session inactive. Closing an already-closed session is a no-op.
func (s *SessionService) Close(ctx context.Context, id int64) error {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return domain.ErrSessionNotFound
	}
	if !session.IsActive {
		return nil
	}
	return s.store.CloseSession(ctx, id)
}

// ListForTeacher returns the teacher's sessions, newest first.
func (s *SessionService) ListForTeacher(ctx context.Context, teacherID string) ([]domain.Session, error) {
	return s.store.ListSessionsByTeacher(ctx, teacherID)
}
