package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/repcoach/internal/domain/completion"
	"github.com/okian/repcoach/internal/domain/feedback"
	"github.com/okian/repcoach/internal/domain/model"
	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/domain/rules"
	"github.com/okian/repcoach/pkg/logger"
)

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID         string            `json:"id"`
	ExerciseID string            `json:"exercise_id"`
	Family     rules.Family      `json:"family"`
	Phase      Phase             `json:"phase"`
	RepCount   int               `json:"rep_count"`
	TargetReps int               `json:"target_reps"`
	Sets       int               `json:"sets,omitempty"`
	Completed  bool              `json:"completed"`
	Closed     bool              `json:"closed"`
	Feedback   feedback.Feedback `json:"feedback"`
	LastSeq    uint64            `json:"last_seq"`
	OpenedAt   time.Time         `json:"opened_at"`
}

// Step reports what one frame did to the session.
type Step struct {
	Snapshot
	Measured   bool
	Transition bool
	Counted    bool
	Completion *completion.Event
}

// Session owns the state of one opened exercise. Process is safe to call
// from any goroutine but frames must be supplied in capture order.
type Session struct {
	mu       sync.Mutex
	id       string
	exercise model.Exercise
	rule     rules.Rule
	state    State
	signal   *completion.Signal
	last     feedback.Feedback
	lastSeq  uint64
	closed   bool
	openedAt time.Time

	handler completion.Handler
	logger  logger.Logger
	now     func() time.Time
}

// New opens a session for ex driven by rule.
func New(id string, ex model.Exercise, rule rules.Rule, opts ...Option) (*Session, error) {
	if err := ex.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExercise, err)
	}
	s := &Session{
		id:       id,
		exercise: ex,
		rule:     rule,
		state:    NewState(ex.TargetReps),
		logger:   logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.signal = completion.NewSignal(s.handler)
	s.openedAt = s.now().UTC()
	s.last = feedback.Reacquire()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Exercise returns the descriptor the session was opened with.
func (s *Session) Exercise() model.Exercise { return s.exercise }

// Rule returns the resolved rule.
func (s *Session) Rule() rules.Rule { return s.rule }

// Process advances the session by one frame. The completion handler runs
// while the session lock is held, so it must not call back into s.
func (s *Session) Process(ctx context.Context, f pose.Frame) (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Step{Snapshot: s.snapshotLocked()}, ErrSessionClosed
	}
	prev := s.state
	if err := prev.Check(); err != nil {
		return Step{Snapshot: s.snapshotLocked()}, err
	}

	next, fb, ev := Advance(prev, f, s.rule)
	if err := next.Check(); err != nil {
		return Step{Snapshot: s.snapshotLocked()}, err
	}
	if next.RepCount < prev.RepCount || (prev.Completed && !next.Completed) {
		return Step{Snapshot: s.snapshotLocked()}, fmt.Errorf("%w: %d/%t -> %d/%t",
			ErrInvariantViolation, prev.RepCount, prev.Completed, next.RepCount, next.Completed)
	}

	s.state = next
	s.last = fb
	if f.Seq > s.lastSeq {
		s.lastSeq = f.Seq
	}

	step := Step{
		Measured:   fb.Category != feedback.CategoryReacquire,
		Transition: next.Phase != prev.Phase,
		Counted:    next.RepCount > prev.RepCount,
	}
	if ev != nil {
		ev.SessionID = s.id
		ev.ExerciseID = s.exercise.ID
		ev.Sets = s.exercise.Sets
		ev.At = s.now().UTC()
		if err := s.signal.Fire(ctx, *ev); err != nil {
			s.logger.Warn(ctx, "completion not delivered", logger.String("session_id", s.id), logger.Error(err))
		} else {
			step.Completion = ev
		}
	}
	step.Snapshot = s.snapshotLocked()
	return step, nil
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close cancels the completion signal. Later frames are rejected.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.signal.Cancel()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:         s.id,
		ExerciseID: s.exercise.ID,
		Family:     s.rule.Family,
		Phase:      s.state.Phase,
		RepCount:   s.state.RepCount,
		TargetReps: s.state.TargetReps,
		Sets:       s.exercise.Sets,
		Completed:  s.state.Completed,
		Closed:     s.closed,
		Feedback:   s.last,
		LastSeq:    s.lastSeq,
		OpenedAt:   s.openedAt,
	}
}
