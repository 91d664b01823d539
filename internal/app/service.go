// Package service wires the rep engine to its adapters and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/repcoach/internal/adapters/mq/queue"
	"github.com/okian/repcoach/internal/adapters/mq/worker"
	"github.com/okian/repcoach/internal/adapters/repository"
	"github.com/okian/repcoach/internal/domain/completion"
	"github.com/okian/repcoach/internal/domain/dedupe"
	"github.com/okian/repcoach/internal/domain/model"
	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/domain/rules"
	"github.com/okian/repcoach/internal/domain/session"
	"github.com/okian/repcoach/pkg/logger"
	"github.com/okian/repcoach/pkg/metrics"
	"go.uber.org/multierr"
)

const (
	defaultQueueSize      = 256
	defaultDedupeSize     = 50000
	defaultMaxSessions    = 1024
	metricsUpdateInterval = 5 * time.Second
)

type openSession struct {
	sess  *session.Session
	queue *queue.FrameQueue
}

// Service owns every open session, its frame queue and its runner.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry *rules.Registry
	store    repository.Store
	deduper  dedupe.Deduper
	pool     *worker.Pool
	sessions map[string]*openSession

	// Configuration
	queueSize   int
	dedupeSize  int
	maxSessions int
	newID       func() string

	// State
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		maxSessions: defaultMaxSessions,
		newID:       uuid.NewString,
		sessions:    make(map[string]*openSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.registry == nil {
		s.registry = rules.NewRegistry()
	}
	if err := s.registry.Validate(); err != nil {
		return fmt.Errorf("rule registry: %w", err)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory completion store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.pool = worker.NewPool(s.logger.Named("pool"))

	// Runners outlive the request that opened their session.
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.loopWG.Add(1)
	go s.metricsLoop(s.runCtx)

	s.started = true
	s.logger.Info(ctx, "repcoach service started",
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("max_sessions", s.maxSessions),
		logger.Any("families", s.registry.Families()),
	)
	return nil
}

// Stop closes every session, waits for runners and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	open := s.sessions
	s.sessions = make(map[string]*openSession)
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping repcoach service...", logger.Int("open_sessions", len(open)))
	for _, o := range open {
		o.sess.Close()
		_ = o.queue.Close()
		metrics.RecordSessionClosed()
	}
	metrics.UpdateSessionsActive(0)

	var err error
	err = multierr.Append(err, s.pool.Shutdown(ctx))
	s.cancel()
	s.loopWG.Wait()
	err = multierr.Append(err, s.store.Close())

	s.logger.Info(ctx, "repcoach service stopped")
	return err
}

// Open resolves ex to a rule and starts a session for it. Unrecognized
// exercises still open with the generic rule.
func (s *Service) Open(ctx context.Context, ex model.Exercise) (session.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return session.Snapshot{}, ErrNotStarted
	}
	if len(s.sessions) >= s.maxSessions {
		metrics.RecordErrorByComponent("service", "too_many_sessions")
		return session.Snapshot{}, ErrTooManySessions
	}

	rule, err := s.registry.Resolve(ex)
	if errors.Is(err, rules.ErrUnrecognizedExercise) {
		metrics.RecordUnrecognizedExercise()
		s.logger.Warn(ctx, "no rule for exercise, using generic feedback",
			logger.String("exercise_id", ex.ID), logger.String("name", ex.Name))
	} else if err != nil {
		return session.Snapshot{}, fmt.Errorf("resolve rule: %w", err)
	}

	id := s.newID()
	sessLog := s.logger.Named("session").With(logger.String("session_id", id))
	sess, err := session.New(id, ex, rule,
		session.WithLogger(sessLog),
		session.WithCompletionHandler(s.onCompletion),
	)
	if err != nil {
		return session.Snapshot{}, err
	}

	q := queue.NewFrameQueue(queue.WithCapacity(s.queueSize))
	r := worker.NewRunner(q, sess, worker.WithName(id), worker.WithLogger(sessLog))
	s.pool.Start(s.runCtx, id, r)
	s.sessions[id] = &openSession{sess: sess, queue: q}

	metrics.RecordSessionOpened()
	metrics.UpdateSessionsActive(len(s.sessions))
	s.logger.Info(ctx, "session opened",
		logger.String("session_id", id),
		logger.String("exercise_id", ex.ID),
		logger.String("family", string(rule.Family)),
		logger.Int("target_reps", ex.TargetReps),
	)
	return sess.Snapshot(), nil
}

// SubmitFrame queues f for session id. It returns true when the frame was a
// retry of one already accepted. Frames with sequence 0 are never deduped.
func (s *Service) SubmitFrame(ctx context.Context, id string, f pose.Frame) (bool, error) {
	o, err := s.lookup(id)
	if err != nil {
		return false, err
	}

	var key string
	if f.Seq != 0 {
		key = dedupe.Key(id, f.Seq)
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordFrameDuplicate()
			s.logger.Debug(ctx, "duplicate frame", logger.String("session_id", id), logger.Uint64("seq", f.Seq))
			return true, nil
		}
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now().UTC()
	}

	if err := o.queue.Enqueue(ctx, f); err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		return false, fmt.Errorf("enqueue frame %d: %w", f.Seq, err)
	}
	return false, nil
}

// Snapshot returns the view of session id.
func (s *Service) Snapshot(_ context.Context, id string) (session.Snapshot, error) {
	o, err := s.lookup(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return o.sess.Snapshot(), nil
}

// Close releases session id. No count or completion is observable after it
// returns.
func (s *Service) Close(ctx context.Context, id string) (session.Snapshot, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return session.Snapshot{}, ErrNotStarted
	}
	o, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return session.Snapshot{}, ErrSessionNotFound
	}

	o.sess.Close()
	_ = o.queue.Close()
	if err := s.pool.Stop(ctx, id); err != nil {
		s.logger.Warn(ctx, "runner did not stop", logger.String("session_id", id), logger.Error(err))
	}
	s.deduper.Forget(ctx, id)

	metrics.RecordSessionClosed()
	metrics.UpdateSessionsActive(n)
	snap := o.sess.Snapshot()
	s.logger.Info(ctx, "session closed",
		logger.String("session_id", id),
		logger.Int("reps", snap.RepCount),
		logger.Bool("completed", snap.Completed),
	)
	return snap, nil
}

// Completions lists persisted completion marks, newest first.
func (s *Service) Completions(ctx context.Context, limit int) ([]repository.Completion, error) {
	store, err := s.completionStore()
	if err != nil {
		return nil, err
	}
	return store.List(ctx, limit)
}

// Completion returns the mark for one exercise.
func (s *Service) Completion(ctx context.Context, exerciseID string) (repository.Completion, error) {
	store, err := s.completionStore()
	if err != nil {
		return repository.Completion{}, err
	}
	return store.Get(ctx, exerciseID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"maxSessions": s.maxSessions,
	}
	if !s.started {
		return stats
	}

	queued := 0
	for _, o := range s.sessions {
		queued += o.queue.Len()
	}
	stats["openSessions"] = len(s.sessions)
	stats["queuedFrames"] = queued
	stats["runners"] = s.pool.Len()
	stats["dedupeEntries"] = s.deduper.Size()
	if n, err := s.store.Count(ctx); err == nil {
		stats["completions"] = n
	}
	return stats
}

// onCompletion persists the completion mark. It runs on the session runner.
func (s *Service) onCompletion(ctx context.Context, ev completion.Event) {
	metrics.RecordCompletion(ev.Family)
	c := repository.Completion{
		ExerciseID:  ev.ExerciseID,
		SessionID:   ev.SessionID,
		Family:      ev.Family,
		RepCount:    ev.RepCount,
		TargetReps:  ev.TargetReps,
		Sets:        ev.Sets,
		CompletedAt: ev.At,
	}
	stored, err := s.store.MarkCompleted(ctx, c)
	if err != nil {
		metrics.RecordCompletionStoreError()
		metrics.RecordErrorByComponent("service", "completion_store")
		s.logger.Error(ctx, "failed to persist completion",
			logger.String("session_id", ev.SessionID),
			logger.String("exercise_id", ev.ExerciseID),
			logger.Error(err),
		)
		return
	}
	s.logger.Info(ctx, "exercise completed",
		logger.String("session_id", ev.SessionID),
		logger.String("exercise_id", ev.ExerciseID),
		logger.Int("reps", ev.RepCount),
		logger.Bool("first_mark", stored),
	)
}

func (s *Service) lookup(id string) (*openSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	o, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return o, nil
}

func (s *Service) completionStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// metricsLoop publishes gauges that are cheaper to sample than to track.
func (s *Service) metricsLoop(ctx context.Context) {
	defer s.loopWG.Done()
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			queued := 0
			for _, o := range s.sessions {
				queued += o.queue.Len()
			}
			s.mu.RUnlock()
			metrics.UpdateQueueSize(queued)

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			metrics.UpdateSystem(mem.Alloc, runtime.NumGoroutine())
		}
	}
}
