// Package metrics provides Prometheus metrics for the crease game service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Gameplay
	deliveries         *prometheus.CounterVec
	swipesIgnored      prometheus.Counter
	swipesDuplicate    prometheus.Counter
	resolveLatency     prometheus.Histogram
	inningsCompleted   prometheus.Counter
	inningsRuns        prometheus.Histogram
	activeSessions     prometheus.Gauge
	sessionsStarted    prometheus.Counter
	sessionsExpired    prometheus.Counter
	leaderboardUpdates prometheus.Counter
	leaderboardErrors  prometheus.Counter
	leaderboardSize    prometheus.Gauge

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Event stream
	wsSubscribers     prometheus.Gauge
	wsMessagesSent    prometheus.Counter
	wsMessagesDropped prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "crease",
		subsystem:        "game",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.deliveries = m.counterVec("deliveries_total", "Deliveries resolved by outcome kind", "outcome")
	m.swipesIgnored = m.counter("swipes_ignored_total", "Gestures too short to count as a swipe")
	m.swipesDuplicate = m.counter("swipes_duplicate_total", "Retried swipe submissions that were not replayed")
	m.resolveLatency = m.histogram("resolve_latency_milliseconds", "Time to resolve one delivery", nil)
	m.inningsCompleted = m.counter("innings_completed_total", "Innings that reached their end")
	m.inningsRuns = m.histogram("innings_runs", "Runs scored per completed innings",
		[]float64{0, 2, 4, 6, 8, 12, 16, 20, 24, 30, 36})
	m.activeSessions = m.gauge("active_sessions", "Sessions currently held in memory")
	m.sessionsStarted = m.counter("sessions_started_total", "Sessions started")
	m.sessionsExpired = m.counter("sessions_expired_total", "Sessions evicted after the idle timeout")
	m.leaderboardUpdates = m.counter("leaderboard_updates_total", "Innings that improved a handle's best")
	m.leaderboardErrors = m.counter("leaderboard_errors_total", "Innings results that failed to record")
	m.leaderboardSize = m.gauge("leaderboard_size", "Handles on the leaderboard")

	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Leaderboard write latency", nil)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Leaderboard read latency", nil)

	m.queueSize = m.gauge("queue_size", "Innings results waiting to be recorded")
	m.queueCapacity = m.gauge("queue_capacity", "Result queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Result queue fill ratio")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Results enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Results dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Results rejected by a full or closed queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency", nil)

	m.workerCount = m.gauge("worker_count", "Configured leaderboard workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently recording a result")
	m.workerIdleCount = m.gauge("worker_idle_count", "Workers waiting for a result")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Results recorded per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to record one result", nil)
	m.workerErrors = m.counter("worker_errors_total", "Results the workers failed to record")

	m.wsSubscribers = m.gauge("ws_subscribers", "Open event stream connections")
	m.wsMessagesSent = m.counter("ws_messages_sent_total", "Event stream messages written")
	m.wsMessagesDropped = m.counter("ws_messages_dropped_total", "Event stream messages dropped for slow clients")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordDelivery counts one resolved delivery.
func RecordDelivery(outcome string) {
	globalManager.deliveries.WithLabelValues(outcome).Inc()
}

// RecordSwipeIgnored counts a gesture below the swipe threshold.
func RecordSwipeIgnored() {
	globalManager.swipesIgnored.Inc()
}

// RecordSwipeDuplicate counts a retried swipe submission.
func RecordSwipeDuplicate() {
	globalManager.swipesDuplicate.Inc()
}

// RecordResolveLatency records delivery resolution latency in milliseconds.
func RecordResolveLatency(latencyMs float64) {
	globalManager.resolveLatency.Observe(latencyMs)
}

// RecordInningsCompleted counts a finished innings and its score.
func RecordInningsCompleted(runs int) {
	globalManager.inningsCompleted.Inc()
	globalManager.inningsRuns.Observe(float64(runs))
}

// UpdateActiveSessions sets the live session count.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordSessionStarted counts a new session.
func RecordSessionStarted() {
	globalManager.sessionsStarted.Inc()
}

// RecordSessionExpired counts a session evicted for idleness.
func RecordSessionExpired() {
	globalManager.sessionsExpired.Inc()
}

// RecordLeaderboardUpdate counts an improved best innings.
func RecordLeaderboardUpdate() {
	globalManager.leaderboardUpdates.Inc()
}

// RecordLeaderboardError counts a result that could not be recorded.
func RecordLeaderboardError() {
	globalManager.leaderboardErrors.Inc()
}

// UpdateLeaderboardSize sets the number of ranked handles.
func UpdateLeaderboardSize(count int) {
	globalManager.leaderboardSize.Set(float64(count))
}

// RecordRepositoryUpdateLatency records leaderboard write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records leaderboard read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued result.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued result.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the worker throughput.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records the time to record one result.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed result.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Event Stream Metrics Functions.

// UpdateWSSubscribers sets the number of open event streams.
func UpdateWSSubscribers(count int) {
	globalManager.wsSubscribers.Set(float64(count))
}

// RecordWSMessageSent counts a message written to a subscriber.
func RecordWSMessageSent() {
	globalManager.wsMessagesSent.Inc()
}

// RecordWSMessageDropped counts a message dropped for a slow subscriber.
func RecordWSMessageDropped() {
	globalManager.wsMessagesDropped.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the heap in use in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
