// Package metrics provides Prometheus metrics for the repcoach service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// latencyBuckets covers per-frame processing, which is expected to stay well
// under a millisecond.
var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10} //nolint:gochecknoglobals // bucket layout

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Engine
	framesProcessed      *prometheus.CounterVec
	framesMissing        prometheus.Counter
	framesDuplicate      prometheus.Counter
	framesOutOfOrder     prometheus.Counter
	phaseTransitions     *prometheus.CounterVec
	repsCounted          *prometheus.CounterVec
	completions          *prometheus.CounterVec
	unrecognized         prometheus.Counter
	frameLatency         prometheus.Histogram
	completionStoreError prometheus.Counter

	// Sessions and queues
	sessionsActive      prometheus.Gauge
	sessionsOpened      prometheus.Counter
	sessionsClosed      prometheus.Counter
	queueSize           prometheus.Gauge
	queueEnqueueErrors  *prometheus.CounterVec
	runnerCount         prometheus.Gauge
	dedupeEntries       prometheus.Gauge
	errorsByComponent   *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Collectors are registered on the
// configured registry (prometheus.DefaultRegisterer unless overridden).
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "repcoach",
		subsystem:        "engine",
		histogramBuckets: latencyBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat collector declarations
	auto := promauto.With(m.registry)

	m.framesProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_processed_total",
		Help:      "Frames evaluated by the rep state machine, by exercise family",
	}, []string{"family"})

	m.framesMissing = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_missing_landmarks_total",
		Help:      "Frames skipped because the pose or a required landmark was missing",
	})

	m.framesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_duplicate_total",
		Help:      "Frame submissions dropped as retries of an already accepted frame",
	})

	m.framesOutOfOrder = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_out_of_order_total",
		Help:      "Frames dropped because their sequence was not newer than the last processed",
	})

	m.phaseTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "phase_transitions_total",
		Help:      "Phase transitions by target phase",
	}, []string{"phase"})

	m.repsCounted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reps_counted_total",
		Help:      "Repetitions counted, by exercise family",
	}, []string{"family"})

	m.completions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "completions_total",
		Help:      "Completion signals raised, by exercise family",
	}, []string{"family"})

	m.unrecognized = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unrecognized_exercises_total",
		Help:      "Sessions opened on the generic rule because no family matched",
	})

	m.frameLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_processing_milliseconds",
		Help:      "Time spent evaluating one frame",
		Buckets:   m.histogramBuckets,
	})

	m.completionStoreError = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "completion_store_errors_total",
		Help:      "Failures persisting a completion mark",
	})

	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_active",
		Help:      "Currently open exercise sessions",
	})

	m.sessionsOpened = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_opened_total",
		Help:      "Exercise sessions opened",
	})

	m.sessionsClosed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_closed_total",
		Help:      "Exercise sessions closed",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_queue_size",
		Help:      "Frames waiting across all session queues",
	})

	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_queue_enqueue_errors_total",
		Help:      "Frames rejected by a session queue, by reason",
	}, []string{"reason"})

	m.runnerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runners",
		Help:      "Session runner goroutines alive",
	})

	m.dedupeEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dedupe_entries",
		Help:      "Frame keys held by the dedupe record",
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Goroutines alive",
	})
}

// Manager methods. Each is a no-op when metrics are disabled.

func (m *Manager) RecordFrameProcessed(family string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.framesProcessed.WithLabelValues(family).Inc()
	m.frameLatency.Observe(latencyMs)
}

func (m *Manager) RecordFrameMissing() {
	if m.enabled {
		m.framesMissing.Inc()
	}
}

func (m *Manager) RecordFrameDuplicate() {
	if m.enabled {
		m.framesDuplicate.Inc()
	}
}

func (m *Manager) RecordFrameOutOfOrder() {
	if m.enabled {
		m.framesOutOfOrder.Inc()
	}
}

func (m *Manager) RecordPhaseTransition(phase string) {
	if m.enabled {
		m.phaseTransitions.WithLabelValues(phase).Inc()
	}
}

func (m *Manager) RecordRep(family string) {
	if m.enabled {
		m.repsCounted.WithLabelValues(family).Inc()
	}
}

func (m *Manager) RecordCompletion(family string) {
	if m.enabled {
		m.completions.WithLabelValues(family).Inc()
	}
}

func (m *Manager) RecordUnrecognizedExercise() {
	if m.enabled {
		m.unrecognized.Inc()
	}
}

func (m *Manager) RecordCompletionStoreError() {
	if m.enabled {
		m.completionStoreError.Inc()
	}
}

func (m *Manager) UpdateSessionsActive(n int) {
	if m.enabled {
		m.sessionsActive.Set(float64(n))
	}
}

func (m *Manager) RecordSessionOpened() {
	if m.enabled {
		m.sessionsOpened.Inc()
	}
}

func (m *Manager) RecordSessionClosed() {
	if m.enabled {
		m.sessionsClosed.Inc()
	}
}

func (m *Manager) UpdateQueueSize(n int) {
	if m.enabled {
		m.queueSize.Set(float64(n))
	}
}

func (m *Manager) RecordQueueEnqueueError(reason string) {
	if m.enabled {
		m.queueEnqueueErrors.WithLabelValues(reason).Inc()
	}
}

func (m *Manager) UpdateRunnerCount(n int) {
	if m.enabled {
		m.runnerCount.Set(float64(n))
	}
}

func (m *Manager) UpdateDedupeEntries(n int64) {
	if m.enabled {
		m.dedupeEntries.Set(float64(n))
	}
}

func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if m.enabled {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func (m *Manager) UpdateSystem(memBytes uint64, goroutines int) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
}

// Package-level helpers delegate to the global manager.

func RecordFrameProcessed(family string, latencyMs float64) {
	globalManager.RecordFrameProcessed(family, latencyMs)
}
func RecordFrameMissing()                          { globalManager.RecordFrameMissing() }
func RecordFrameDuplicate()                        { globalManager.RecordFrameDuplicate() }
func RecordFrameOutOfOrder()                       { globalManager.RecordFrameOutOfOrder() }
func RecordPhaseTransition(phase string)           { globalManager.RecordPhaseTransition(phase) }
func RecordRep(family string)                      { globalManager.RecordRep(family) }
func RecordCompletion(family string)               { globalManager.RecordCompletion(family) }
func RecordUnrecognizedExercise()                  { globalManager.RecordUnrecognizedExercise() }
func RecordCompletionStoreError()                  { globalManager.RecordCompletionStoreError() }
func UpdateSessionsActive(n int)                   { globalManager.UpdateSessionsActive(n) }
func RecordSessionOpened()                         { globalManager.RecordSessionOpened() }
func RecordSessionClosed()                         { globalManager.RecordSessionClosed() }
func UpdateQueueSize(n int)                        { globalManager.UpdateQueueSize(n) }
func RecordQueueEnqueueError(reason string)        { globalManager.RecordQueueEnqueueError(reason) }
func UpdateRunnerCount(n int)                      { globalManager.UpdateRunnerCount(n) }
func UpdateDedupeEntries(n int64)                  { globalManager.UpdateDedupeEntries(n) }
func UpdateSystem(memBytes uint64, goroutines int) { globalManager.UpdateSystem(memBytes, goroutines) }
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// GetRegistry returns the registry the global manager reports to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
