package completion

import "errors"

var (
	// ErrAlreadyFired is returned by a second Fire on the same signal.
	ErrAlreadyFired = errors.New("completion already fired")
	// ErrCancelled is returned by Fire after the owning session was closed.
	ErrCancelled = errors.New("completion cancelled")
)
