// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
)

// Exercise describes a prescribed exercise opened for execution.
type Exercise struct {
	ID         string `json:"id"`                 // prescription-scoped exercise identifier
	Name       string `json:"name"`               // display name, e.g. "Wall Squat"
	Category   string `json:"category,omitempty"` // optional explicit rule family, e.g. "squat"
	TargetReps int    `json:"target_reps"`        // repetitions that complete the session
	Sets       int    `json:"sets,omitempty"`     // prescribed sets; informational
}

// Validate checks the descriptor can drive a session.
func (e Exercise) Validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return errors.New("missing exercise id")
	case strings.TrimSpace(e.Name) == "" && strings.TrimSpace(e.Category) == "":
		return errors.New("missing exercise name or category")
	case e.TargetReps < 1:
		return errors.New("target reps must be at least 1")
	case e.Sets < 0:
		return errors.New("sets must not be negative")
	}
	return nil
}
