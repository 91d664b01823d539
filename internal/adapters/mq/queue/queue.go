// Package queue buffers landmark frames between the HTTP intake and a
// session runner.
//
// A FrameQueue is a bounded channel that also satisfies pose.Source, so a
// runner reads it exactly like a recorded stream.
package queue

import (
	"context"
	"io"
	"sync"

	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/pkg/metrics"
)

const defaultCapacity = 256

// Queue is the producer side used by the service.
type Queue interface {
	// Enqueue adds a frame without blocking. It returns ErrFull under
	// backpressure and ErrClosed after Close.
	Enqueue(ctx context.Context, f pose.Frame) error

	// Len returns the number of buffered frames.
	Len() int

	// Close stops intake. Buffered frames are still delivered, then Next
	// returns io.EOF.
	Close() error

	IsClosed() bool
}

// FrameQueue implements Queue and pose.Source over a buffered channel.
type FrameQueue struct {
	frames   chan pose.Frame
	capacity int

	mu     sync.RWMutex
	closed bool
}

var (
	_ Queue       = (*FrameQueue)(nil)
	_ pose.Source = (*FrameQueue)(nil)
)

// NewFrameQueue creates a queue with configuration options.
func NewFrameQueue(opts ...Option) *FrameQueue {
	q := &FrameQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.frames = make(chan pose.Frame, q.capacity)
	return q
}

// Enqueue adds f to the queue.
func (q *FrameQueue) Enqueue(ctx context.Context, f pose.Frame) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError("context_cancelled")
		return ctx.Err()
	default:
	}
	select {
	case q.frames <- f:
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrFull
	}
}

// Next blocks for the next frame. It returns io.EOF once the queue is closed
// and drained.
func (q *FrameQueue) Next(ctx context.Context) (pose.Frame, error) {
	select {
	case f, ok := <-q.frames:
		if !ok {
			return pose.Frame{}, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		return pose.Frame{}, ctx.Err()
	}
}

// Len returns the current number of queued frames.
func (q *FrameQueue) Len() int {
	return len(q.frames)
}

// Capacity returns the configured bound.
func (q *FrameQueue) Capacity() int {
	return q.capacity
}

// Close stops intake.
func (q *FrameQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.frames)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *FrameQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
