// Package completion provides the one-shot notification raised when a
// session reaches its target repetition count.
package completion

import (
	"context"
	"sync"
	"time"
)

// Event describes a finished exercise.
type Event struct {
	SessionID  string    `json:"session_id"`
	ExerciseID string    `json:"exercise_id"`
	Family     string    `json:"family"`
	RepCount   int       `json:"rep_count"`
	TargetReps int       `json:"target_reps"`
	Sets       int       `json:"sets,omitempty"`
	At         time.Time `json:"at"`
}

// Handler consumes a completion event. It runs on the firing goroutine.
type Handler func(ctx context.Context, ev Event)

// Signal delivers at most one Event to its handler.
type Signal struct {
	mu        sync.Mutex
	handler   Handler
	fired     bool
	cancelled bool
}

// NewSignal returns an armed signal. A nil handler is allowed; Fire still
// records the transition.
func NewSignal(h Handler) *Signal {
	return &Signal{handler: h}
}

// Fire delivers ev exactly once. The handler is invoked outside the lock.
func (s *Signal) Fire(ctx context.Context, ev Event) error {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return ErrCancelled
	}
	if s.fired {
		s.mu.Unlock()
		return ErrAlreadyFired
	}
	s.fired = true
	h := s.handler
	s.mu.Unlock()

	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if h != nil {
		h(ctx, ev)
	}
	return nil
}

// Cancel disarms the signal. Cancelling a fired signal is a no-op for the
// already delivered event.
func (s *Signal) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// Fired reports whether the event was delivered.
func (s *Signal) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
