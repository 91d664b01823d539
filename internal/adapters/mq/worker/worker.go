// Package worker drives sessions from frame sources: one runner goroutine
// per open session, grouped in a pool for shutdown.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/domain/session"
	"github.com/okian/repcoach/pkg/logger"
	"github.com/okian/repcoach/pkg/metrics"
	"go.uber.org/multierr"
)

const poolShutdownTimeout = 10 * time.Second

// Processor consumes frames in order. *session.Session satisfies it.
type Processor interface {
	ID() string
	Process(ctx context.Context, f pose.Frame) (session.Step, error)
}

// StepHook observes every processed frame.
type StepHook func(ctx context.Context, f pose.Frame, step session.Step)

// Runner reads one source and feeds one processor.
type Runner struct {
	source    pose.Source
	processor Processor
	name      string
	onStep    StepHook

	lastSeq uint64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	err          error

	logger logger.Logger
}

// NewRunner creates a runner with configuration options.
func NewRunner(src pose.Source, proc Processor, opts ...Option) *Runner {
	r := &Runner{
		source:    src,
		processor: proc,
		name:      "runner",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.String("session_id", proc.ID()))
	return r
}

// Run processes frames until the source ends, ctx is done, Shutdown is
// called, or the processor rejects a frame.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		f, err := r.source.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			r.logger.Debug(ctx, "source exhausted")
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return
		case err != nil:
			r.err = fmt.Errorf("read frame: %w", err)
			metrics.RecordErrorByComponent("runner", "source_error")
			r.logger.Error(ctx, "frame source failed", logger.Error(err))
			return
		}

		if err := r.processFrame(ctx, f); err != nil {
			if !errors.Is(err, session.ErrSessionClosed) {
				r.err = err
				metrics.RecordErrorByComponent("runner", "process_error")
				r.logger.Error(ctx, "frame rejected, stopping runner", logger.Uint64("seq", f.Seq), logger.Error(err))
			}
			return
		}
	}
}

// processFrame drops out-of-order frames, then advances the session.
// Sequence 0 marks an unnumbered frame and is always processed.
func (r *Runner) processFrame(ctx context.Context, f pose.Frame) error {
	if f.Seq != 0 {
		if f.Seq <= r.lastSeq {
			metrics.RecordFrameOutOfOrder()
			r.logger.Debug(ctx, "dropping out-of-order frame",
				logger.Uint64("seq", f.Seq), logger.Uint64("last_seq", r.lastSeq))
			return nil
		}
		r.lastSeq = f.Seq
	}

	start := time.Now()
	step, err := r.processor.Process(ctx, f)
	if err != nil {
		return fmt.Errorf("process frame %d: %w", f.Seq, err)
	}
	family := string(step.Family)
	metrics.RecordFrameProcessed(family, float64(time.Since(start).Microseconds())/1000)

	if !step.Measured {
		metrics.RecordFrameMissing()
	}
	if step.Transition {
		metrics.RecordPhaseTransition(step.Phase.String())
	}
	if step.Counted {
		metrics.RecordRep(family)
		r.logger.Info(ctx, "rep counted",
			logger.Int("reps", step.RepCount), logger.Int("target", step.TargetReps))
	}
	if r.onStep != nil {
		r.onStep(ctx, f, step)
	}
	return nil
}

// Shutdown stops the runner and waits for it to exit.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.shutdownOnce.Do(func() { close(r.shutdown) })

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("runner %s shutdown timed out: %w", r.name, ctx.Err())
	}
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Err returns the error that stopped the runner, if any. Valid after Done.
func (r *Runner) Err() error {
	<-r.done
	return r.err
}

// Pool tracks running runners by key.
type Pool struct {
	mu      sync.Mutex
	runners map[string]*Runner
	logger  logger.Logger
}

// NewPool creates an empty pool.
func NewPool(l logger.Logger) *Pool {
	if l == nil {
		l = logger.Nop()
	}
	return &Pool{
		runners: make(map[string]*Runner),
		logger:  l,
	}
}

// Start launches r under key.
func (p *Pool) Start(ctx context.Context, key string, r *Runner) {
	p.mu.Lock()
	p.runners[key] = r
	n := len(p.runners)
	p.mu.Unlock()
	metrics.UpdateRunnerCount(n)

	go func() {
		r.Run(ctx)
		p.mu.Lock()
		if p.runners[key] == r {
			delete(p.runners, key)
		}
		n := len(p.runners)
		p.mu.Unlock()
		metrics.UpdateRunnerCount(n)
	}()
}

// Stop shuts down the runner under key, if running.
func (p *Pool) Stop(ctx context.Context, key string) error {
	p.mu.Lock()
	r, ok := p.runners[key]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return r.Shutdown(ctx)
}

// Len returns the number of live runners.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.runners)
}

// Shutdown stops every runner and combines their errors.
func (p *Pool) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	p.mu.Lock()
	runners := make(map[string]*Runner, len(p.runners))
	for k, r := range p.runners {
		runners[k] = r
	}
	p.mu.Unlock()

	var err error
	for key, r := range runners {
		if serr := r.Shutdown(ctx); serr != nil {
			p.logger.Warn(ctx, "runner shutdown failed", logger.String("session_id", key), logger.Error(serr))
			err = multierr.Append(err, serr)
		}
	}
	return err
}
