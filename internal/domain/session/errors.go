package session

import "errors"

var (
	// ErrSessionClosed is returned for frames processed after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrInvariantViolation flags a counter or completion state that cannot
	// be reached through Advance. It indicates a defect, not bad input.
	ErrInvariantViolation = errors.New("session invariant violated")
	// ErrInvalidExercise is returned when a descriptor cannot drive a session.
	ErrInvalidExercise = errors.New("invalid exercise")
)
