package session

import (
	"time"

	"github.com/okian/repcoach/internal/domain/completion"
	"github.com/okian/repcoach/pkg/logger"
)

// Option configures a Session.
type Option func(*Session)

// WithCompletionHandler sets the consumer of the completion event.
func WithCompletionHandler(h completion.Handler) Option {
	return func(s *Session) {
		s.handler = h
	}
}

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
