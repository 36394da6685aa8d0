package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewStudentID generates an opaque student identifier, collision-resistant
// enough for one session's population.
func NewStudentID() string {
	return uuid.NewString()[:8]
}

// RunRegistry correlates run tokens to their run states on behalf of the
// transport layer. It also hosts the optional periodic sweep that forces
// completion of expired runs whose clients went idle.
type RunRegistry struct {
	runner *Runner

	mu   sync.RWMutex
	runs map[string]*RunState
}

func NewRunRegistry(runner *Runner) *RunRegistry {
	return &RunRegistry{
		runner: runner,
		runs:   make(map[string]*RunState),
	}
}

// Add registers a run state and returns its opaque token.
func (g *RunRegistry) Add(state *RunState) string {
	token := uuid.NewString()
	g.mu.Lock()
	g.runs[token] = state
	g.mu.Unlock()
	return token
}

func (g *RunRegistry) Get(token string) (*RunState, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	state, ok := g.runs[token]
	return state, ok
}

func (g *RunRegistry) Remove(token string) {
	g.mu.Lock()
	delete(g.runs, token)
	g.mu.Unlock()
}

// Sweep observes every registered run once, which force-submits any whose
// deadline has passed. Completed runs are dropped from the registry; their
// durable answer rows remain the source of truth for resume checks.
func (g *RunRegistry) Sweep(ctx context.Context) {
	g.mu.RLock()
	snapshot := make(map[string]*RunState, len(g.runs))
	for token, state := range g.runs {
		snapshot[token] = state
	}
	g.mu.RUnlock()

	for token, state := range snapshot {
		if _, forced, err := g.runner.Observe(ctx, state); err != nil {
			log.Printf("sweep: forced submit for session %d student %s failed: %v", state.SessionID, state.StudentID, err)
			continue
		} else if forced {
			log.Printf("sweep: forced completion for session %d student %s", state.SessionID, state.StudentID)
		}
		if state.Completed() {
			g.Remove(token)
		}
	}
}

// StartSweeper runs Sweep on the given interval until the context is done.
func (g *RunRegistry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.Sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
