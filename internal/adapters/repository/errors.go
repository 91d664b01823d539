package repository

import "errors"

// Sentinel kinds for completion store errors.
var (
	ErrNotFound          = errors.New("completion not found")
	ErrInvalidLimit      = errors.New("invalid list limit")
	ErrMissingExerciseID = errors.New("missing exercise id")
	ErrClosed            = errors.New("store closed")
)
