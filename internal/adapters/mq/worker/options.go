package worker

import (
	"github.com/okian/repcoach/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithName sets the runner name for identification and logging.
func WithName(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.name = name
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithStepHook registers an observer for processed frames.
func WithStepHook(h StepHook) Option {
	return func(r *Runner) {
		r.onStep = h
	}
}
