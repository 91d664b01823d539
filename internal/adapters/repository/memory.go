package repository

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps completion marks in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	marks  map[string]Completion
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{marks: make(map[string]Completion)}
}

func (s *MemoryStore) MarkCompleted(_ context.Context, c Completion) (bool, error) {
	if err := validate(c); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if _, ok := s.marks[c.ExerciseID]; ok {
		return false, nil
	}
	s.marks[c.ExerciseID] = c
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, exerciseID string) (Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.marks[exerciseID]
	if !ok {
		return Completion{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Completion, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	out := make([]Completion, 0, len(s.marks))
	for _, c := range s.marks {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].ExerciseID < out[j].ExerciseID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.marks), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
