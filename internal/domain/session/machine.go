// Package session holds the rep state machine: a pure transition function
// and an owned per-exercise Session that applies it frame by frame.
package session

import (
	"fmt"

	"github.com/okian/repcoach/internal/domain/completion"
	"github.com/okian/repcoach/internal/domain/feedback"
	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/domain/rules"
)

// Phase is the binary rep phase.
type Phase = feedback.Phase

const (
	PhaseExtended   = feedback.PhaseExtended
	PhaseContracted = feedback.PhaseContracted
)

// State is the counter state of one session.
type State struct {
	Phase      Phase
	RepCount   int
	TargetReps int
	Completed  bool
}

// NewState returns the initial state for target repetitions.
func NewState(target int) State {
	return State{Phase: PhaseExtended, TargetReps: target}
}

// Check verifies the counter invariants.
func (s State) Check() error {
	switch {
	case s.TargetReps < 1:
		return fmt.Errorf("%w: target %d", ErrInvariantViolation, s.TargetReps)
	case s.RepCount < 0 || s.RepCount > s.TargetReps:
		return fmt.Errorf("%w: count %d outside [0, %d]", ErrInvariantViolation, s.RepCount, s.TargetReps)
	case s.Completed != (s.RepCount == s.TargetReps):
		return fmt.Errorf("%w: completed=%t at %d/%d", ErrInvariantViolation, s.Completed, s.RepCount, s.TargetReps)
	}
	return nil
}

// Advance consumes one frame. Frames the rule cannot measure leave the state
// untouched and produce reacquire feedback. A rep is counted on the
// contracted to extended transition; the returned event is non-nil only on
// the frame that reaches the target. Session and exercise identifiers on the
// event are left for the caller.
func Advance(s State, f pose.Frame, rule rules.Rule) (State, feedback.Feedback, *completion.Event) {
	m, err := rule.Measure(f)
	if err != nil {
		return s, feedback.Reacquire(), nil
	}
	if s.Completed || !rule.Counts() {
		return s, feedback.Generate(rule, s.Phase, m, s.Completed), nil
	}

	var ev *completion.Event
	switch s.Phase {
	case PhaseExtended:
		if rule.Contracted(m) {
			s.Phase = PhaseContracted
		}
	case PhaseContracted:
		if rule.Extended(m) {
			s.Phase = PhaseExtended
			if s.RepCount < s.TargetReps {
				s.RepCount++
			}
			if s.RepCount == s.TargetReps {
				s.Completed = true
				ev = &completion.Event{
					Family:     string(rule.Family),
					RepCount:   s.RepCount,
					TargetReps: s.TargetReps,
				}
			}
		}
	}
	return s, feedback.Generate(rule, s.Phase, m, s.Completed), ev
}
