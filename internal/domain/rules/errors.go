package rules

import "errors"

// Sentinel error kinds for rule evaluation and resolution.
var (
	ErrMissingLandmark      = errors.New("missing landmark")
	ErrUnrecognizedExercise = errors.New("unrecognized exercise")
	ErrInvalidRule          = errors.New("invalid rule")
)
