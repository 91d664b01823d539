// Package repository persists exercise completion marks.
package repository

import (
	"context"
	"time"
)

// Completion is the persisted "exercise completed" mark.
type Completion struct {
	ExerciseID  string    `json:"exercise_id"`
	SessionID   string    `json:"session_id"`
	Family      string    `json:"family"`
	RepCount    int       `json:"rep_count"`
	TargetReps  int       `json:"target_reps"`
	Sets        int       `json:"sets,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store provides read/write access to completion marks.
type Store interface {
	// MarkCompleted records c. The first mark for an exercise wins; later
	// marks return false without error.
	MarkCompleted(ctx context.Context, c Completion) (bool, error)

	// Get returns the mark for exerciseID or ErrNotFound.
	Get(ctx context.Context, exerciseID string) (Completion, error)

	// List returns up to limit marks, newest first.
	List(ctx context.Context, limit int) ([]Completion, error)

	// Count returns the number of marks.
	Count(ctx context.Context) (int, error)

	Close() error
}

func validate(c Completion) error {
	if c.ExerciseID == "" {
		return ErrMissingExerciseID
	}
	return nil
}
