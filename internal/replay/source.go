package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/okian/repcoach/internal/domain/pose"
)

const maxLineBytes = 1 << 20

// JSONLSource reads one frame per line. Blank lines are skipped.
type JSONLSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewJSONLSource reads frames from r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	s := &JSONLSource{scanner: sc}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenJSONL opens a recording file.
func OpenJSONL(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	return NewJSONLSource(f), nil
}

// Next decodes the next frame or returns io.EOF.
func (s *JSONLSource) Next(ctx context.Context) (pose.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return pose.Frame{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return pose.Frame{}, fmt.Errorf("line %d: %w", s.line+1, err)
			}
			return pose.Frame{}, io.EOF
		}
		s.line++
		raw := bytes.TrimSpace(s.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var f pose.Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			return pose.Frame{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		return f, nil
	}
}

// Close releases the underlying reader.
func (s *JSONLSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ReadAll drains src.
func ReadAll(ctx context.Context, src pose.Source) ([]pose.Frame, error) {
	var frames []pose.Frame
	for {
		f, err := src.Next(ctx)
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
}
