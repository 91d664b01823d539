package pose

import (
	"context"
	"io"
)

// Source delivers frames in capture order. Next blocks until a frame is
// available, ctx is done, or the stream ends (io.EOF).
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// SliceSource replays a fixed list of frames.
type SliceSource struct {
	frames []Frame
	pos    int
}

// NewSliceSource returns a Source over frames.
func NewSliceSource(frames []Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next returns the next frame or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}
