package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"classquiz-service/internal/domain"
)

// RunState is one student's progression through a session's question set.
// It is ephemeral, owned by the transport layer (correlated via a run token)
// and never persisted; the durable record of a finished run is the set of
// answer rows written at submission.
type RunState struct {
	SessionID int64
	StudentID string
	Topic     string

	mu         sync.Mutex
	started    bool
	deadline   time.Time
	current    int
	selections map[int64]string
	completed  bool
}

// RunView is a lock-free snapshot of a RunState for transport responses.
type RunView struct {
	SessionID        int64  `json:"sessionId"`
	StudentID        string `json:"studentId"`
	Started          bool   `json:"started"`
	Completed        bool   `json:"completed"`
	CurrentQuestion  int    `json:"currentQuestion"`
	AnsweredCount    int    `json:"answeredCount"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// Completed reports whether the run has reached its terminal state.
func (st *RunState) Completed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.completed
}

// Runner drives quiz run state machines: NotStarted -> InProgress -> Completed.
// All transitions take the state explicitly; there is no ambient per-student
// state inside the runner.
type Runner struct {
	sessions  SessionStore
	questions QuestionSource
	results   ResultStore
	duration  time.Duration
	clock     func() time.Time
}

func NewRunner(sessions SessionStore, questions QuestionSource, results ResultStore, duration time.Duration) *Runner {
	return NewRunnerWithClock(sessions, questions, results, duration, time.Now)
}

// NewRunnerWithClock allows deterministic deadlines in tests.
func NewRunnerWithClock(sessions SessionStore, questions QuestionSource, results ResultStore, duration time.Duration, clock func() time.Time) *Runner {
	return &Runner{
		sessions:  sessions,
		questions: questions,
		results:   results,
		duration:  duration,
		clock:     clock,
	}
}

// Enter is the entry guard. The session must exist and be active; a student
// with existing answer rows resumes directly in the completed state so a
// reloaded client can never re-take the quiz.
func (r *Runner) Enter(ctx context.Context, sessionID int64, studentID string) (*RunState, error) {
	session, err := r.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if !session.IsActive {
		return nil, domain.ErrSessionClosed
	}

	completed, err := r.results.HasStudentCompleted(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	return &RunState{
		SessionID: sessionID,
		StudentID: studentID,
		Topic:     session.Topic,
		completed: completed,
	}, nil
}

// Questions returns the student-facing question set for the run's topic.
func (r *Runner) Questions(ctx context.Context, state *RunState) ([]domain.StudentQuestion, error) {
	set, err := r.questions.QuestionSet(ctx, state.Topic)
	if err != nil {
		return nil, err
	}
	return set.Questions, nil
}

// Start transitions NotStarted -> InProgress and arms the deadline. It is a
// no-op on a run that is already in progress or completed.
func (r *Runner) Start(state *RunState) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.completed || state.started {
		return
	}
	state.started = true
	state.deadline = r.clock().Add(r.duration)
	state.current = 0
	state.selections = make(map[int64]string)
}

// Select records an answer choice. The last choice wins; changing an answer
// before submission is always allowed.
func (r *Runner) Select(ctx context.Context, state *RunState, questionID int64, letter string) error {
	set, err := r.questions.QuestionSet(ctx, state.Topic)
	if err != nil {
		return err
	}
	if _, ok := set.Answers[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.completed {
		return nil
	}
	if !state.started {
		return domain.ErrRunNotStarted
	}
	state.selections[questionID] = letter
	return nil
}

// Advance moves the question pointer by delta, clamped to the set bounds.
// It never triggers side effects.
func (r *Runner) Advance(ctx context.Context, state *RunState, delta int) error {
	set, err := r.questions.QuestionSet(ctx, state.Topic)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.completed || !state.started {
		return nil
	}
	next := state.current + delta
	if next < 0 {
		next = 0
	}
	if max := len(set.Questions) - 1; next > max {
		next = max
	}
	state.current = next
	return nil
}

// Observe performs the lazy deadline check. If the run is in progress and the
// deadline has passed, whatever selections exist are submitted (missing
// questions as blanks, scored incorrect) and the run completes. Forced
// completion is a normal transition, not an error.
func (r *Runner) Observe(ctx context.Context, state *RunState) (remaining time.Duration, forced bool, err error) {
	state.mu.Lock()
	if state.completed || !state.started {
		started := state.started
		state.mu.Unlock()
		if !started {
			return r.duration, false, nil
		}
		return 0, false, nil
	}
	remaining = state.deadline.Sub(r.clock())
	state.mu.Unlock()

	if remaining > 0 {
		return remaining, false, nil
	}
	return 0, true, r.submit(ctx, state, false)
}

// Submit is the manual submission path; it requires a selection for every
// question in the set. A submit on a completed run is absorbed as a no-op.
func (r *Runner) Submit(ctx context.Context, state *RunState) error {
	return r.submit(ctx, state, true)
}

func (r *Runner) submit(ctx context.Context, state *RunState, manual bool) error {
	set, err := r.questions.QuestionSet(ctx, state.Topic)
	if err != nil {
		return err
	}
	if len(set.Questions) == 0 {
		return domain.ErrNoQuestions
	}

	state.mu.Lock()
	if state.completed {
		state.mu.Unlock()
		return nil
	}
	if !state.started {
		state.mu.Unlock()
		return domain.ErrRunNotStarted
	}
	if manual {
		for _, q := range set.Questions {
			if state.selections[q.ID] == "" {
				state.mu.Unlock()
				return domain.ErrIncompleteAnswers
			}
		}
	}
	// Check-and-set before writing: a racing timer and manual click must
	// produce exactly one submission.
	state.completed = true
	selections := make(map[int64]string, len(state.selections))
	for id, letter := range state.selections {
		selections[id] = letter
	}
	state.mu.Unlock()

	now := r.clock()
	records := make([]domain.AnswerRecord, 0, len(set.Questions))
	for _, q := range set.Questions {
		selected := selections[q.ID]
		records = append(records, domain.AnswerRecord{
			SessionID:      state.SessionID,
			StudentID:      state.StudentID,
			QuestionID:     q.ID,
			SelectedAnswer: selected,
			IsCorrect:      selected != "" && selected == set.Answers[q.ID],
			AnsweredAt:     now,
		})
	}
	if err := r.results.SaveAnswers(ctx, records); err != nil {
		// Roll the flag back so a retry after a store failure can still
		// submit; the uniqueness constraint keeps any landed rows safe.
		state.mu.Lock()
		state.completed = false
		state.mu.Unlock()
		return fmt.Errorf("save answers: %w", err)
	}
	return nil
}

// View snapshots the run for transport responses.
func (r *Runner) View(state *RunState) RunView {
	state.mu.Lock()
	defer state.mu.Unlock()

	view := RunView{
		SessionID:       state.SessionID,
		StudentID:       state.StudentID,
		Started:         state.started,
		Completed:       state.completed,
		CurrentQuestion: state.current,
		AnsweredCount:   len(state.selections),
	}
	if state.started && !state.completed {
		if remaining := state.deadline.Sub(r.clock()); remaining > 0 {
			view.RemainingSeconds = int(remaining.Seconds())
		}
	}
	return view
}
