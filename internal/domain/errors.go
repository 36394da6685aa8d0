package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned when a student tries to enter a session
	// whose active flag has been flipped off.
	ErrSessionClosed = errors.New("session is closed")
	// ErrRunNotStarted is returned for run operations before Start.
	ErrRunNotStarted = errors.New("quiz run not started")
	// ErrIncompleteAnswers rejects a manual submit with unanswered questions;
	// only the deadline path may submit partial selections.
	ErrIncompleteAnswers = errors.New("all questions must be answered before submitting")
	// ErrQuestionNotFound indicates a selected question id is not part of the run.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions indicates a topic with no seeded question set.
	ErrNoQuestions = errors.New("no questions for topic")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid username or password")
)
