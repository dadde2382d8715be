// Package metrics provides Prometheus metrics for the taskforce allocation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultLatencyBuckets covers store calls through whole allocation passes, in milliseconds.
var defaultLatencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the taskforce service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    map[string]string
	metricPrefix   string
	registry       prometheus.Registerer

	// Allocation Metrics - what the engine decided
	allocationPasses     *prometheus.CounterVec
	assignmentsCommitted prometheus.Counter
	assignmentsFailed    prometheus.Counter
	tasksUnassigned      prometheus.Counter
	tasksMalformed       prometheus.Counter
	passLatency          prometheus.Histogram
	commitLatency        prometheus.Histogram
	passesRejected       prometheus.Counter

	// Store Metrics
	storeOperations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	storeRecords    *prometheus.GaugeVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics - allocation job queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "taskforce",
		subsystem:      "allocation",
		latencyBuckets: defaultLatencyBuckets,
		constLabels:    make(map[string]string),
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels, Buckets: buckets,
		})
	}
	counterVec := func(name, help string, keys ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		}, keys)
	}

	// Allocation Metrics
	m.allocationPasses = counterVec("passes_total", "Allocation passes by result", "result")
	m.assignmentsCommitted = counter("assignments_committed_total", "Assignments persisted by allocation passes")
	m.assignmentsFailed = counter("assignments_failed_total", "Planned assignments the store did not persist")
	m.tasksUnassigned = counter("tasks_unassigned_total", "Tasks left unassigned because no member was eligible")
	m.tasksMalformed = counter("tasks_malformed_total", "Tasks skipped because they could not be identified")
	m.passLatency = histogram("pass_latency_milliseconds", "End-to-end allocation pass latency in milliseconds", m.latencyBuckets)
	m.commitLatency = histogram("commit_latency_milliseconds", "Assignment batch commit latency in milliseconds", m.latencyBuckets)
	m.passesRejected = counter("passes_rejected_total", "Passes rejected because another pass held the event lease")

	// Store Metrics
	m.storeOperations = counterVec("store_operations_total", "Store gateway operations by operation and outcome", "operation", "outcome")
	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("store_latency_milliseconds"),
		Help: "Store gateway latency in milliseconds", ConstLabels: labels, Buckets: m.latencyBuckets,
	}, []string{"operation"})
	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("breaker_state"),
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)", ConstLabels: labels,
	}, []string{"breaker"})
	m.storeRecords = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("store_records"),
		Help: "Records held by the store by collection", ConstLabels: labels,
	}, []string{"collection"})

	// HTTP Performance Metrics
	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_request_duration_milliseconds"),
		Help: "HTTP request duration in milliseconds", ConstLabels: labels, Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	// Queue Metrics
	m.queueSize = gauge("queue_size", "Current number of queued allocation jobs")
	m.queueCapacity = gauge("queue_capacity", "Maximum allocation job queue capacity")
	m.queueUtilization = gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = counter("queue_enqueue_total", "Total number of allocation jobs enqueued")
	m.queueDequeueRate = counter("queue_dequeue_total", "Total number of allocation jobs dequeued")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Total number of rejected enqueues")

	// Worker Metrics
	m.workerCount = gauge("worker_count", "Number of allocation workers")
	m.workerProcessingLatency = histogram("worker_processing_latency_milliseconds", "Allocation job processing latency in milliseconds", m.latencyBuckets)
	m.workerErrorRate = counter("worker_errors_total", "Total number of failed allocation jobs")

	// Error Metrics
	m.errorRateByComponent = counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByType = counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")

	// System Performance Metrics
	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Allocation Metrics Functions.

// RecordAllocationPass counts a finished pass by result
// (ok, empty, dry_run, partial_failure, fetch_error).
func RecordAllocationPass(result string) {
	globalManager.allocationPasses.WithLabelValues(result).Inc()
}

// RecordAssignmentsCommitted adds n persisted assignments.
func RecordAssignmentsCommitted(n int) {
	globalManager.assignmentsCommitted.Add(float64(max(n, 0)))
}

// RecordAssignmentsFailed adds n assignments that were not persisted.
func RecordAssignmentsFailed(n int) {
	globalManager.assignmentsFailed.Add(float64(max(n, 0)))
}

// RecordUnassignedTasks adds n tasks that had no eligible member.
func RecordUnassignedTasks(n int) {
	globalManager.tasksUnassigned.Add(float64(max(n, 0)))
}

// RecordMalformedTasks adds n tasks skipped as malformed.
func RecordMalformedTasks(n int) {
	globalManager.tasksMalformed.Add(float64(max(n, 0)))
}

// RecordPassLatency records allocation pass latency in milliseconds.
func RecordPassLatency(latencyMs float64) {
	globalManager.passLatency.Observe(latencyMs)
}

// RecordCommitLatency records batch commit latency in milliseconds.
func RecordCommitLatency(latencyMs float64) {
	globalManager.commitLatency.Observe(latencyMs)
}

// RecordPassRejected counts a pass refused because the event was busy.
func RecordPassRejected() {
	globalManager.passesRejected.Inc()
}

// Store Metrics Functions.

// RecordStoreOperation counts a gateway operation with its outcome.
func RecordStoreOperation(operation, outcome string) {
	globalManager.storeOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordStoreLatency records gateway operation latency in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateBreakerState publishes a circuit breaker state.
func UpdateBreakerState(breaker string, state int) {
	globalManager.breakerState.WithLabelValues(breaker).Set(float64(state))
}

// UpdateStoreRecords publishes the record count of a store collection.
func UpdateStoreRecords(collection string, count int) {
	globalManager.storeRecords.WithLabelValues(collection).Set(float64(count))
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

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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
