package queue

// Option applies a configuration option to the FrameQueue.
type Option func(*FrameQueue)

// WithCapacity sets the maximum number of buffered frames.
func WithCapacity(capacity int) Option {
	return func(q *FrameQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
