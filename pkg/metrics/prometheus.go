// Package metrics provides Prometheus metrics for the rendezvous scheduling service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Availability engine
	availabilityComputations *prometheus.CounterVec
	availabilityLatency      prometheus.Histogram
	daysScanned              prometheus.Counter
	membersScanned           prometheus.Counter
	slotsEmitted             *prometheus.CounterVec

	// Materializer
	materializations       *prometheus.CounterVec
	materializationLatency prometheus.Histogram
	memberWrites           *prometheus.CounterVec
	duplicateRequests      prometheus.Counter

	// Write fan-out
	writeQueueSize     prometheus.Gauge
	writeQueueCapacity prometheus.Gauge
	workerActiveCount  prometheus.Gauge

	// Event store
	storeOperationLatency *prometheus.HistogramVec
	storeErrors           *prometheus.CounterVec
	storeRetries          prometheus.Counter

	// Calendar import
	icsEvents *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
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
		namespace:        "rendezvous",
		subsystem:        "scheduler",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics on the configured registry.
func (m *Manager) initializeMetrics() {
	m.availabilityComputations = m.counterVec("availability_computations_total",
		"Availability computations by outcome", "outcome")
	m.availabilityLatency = m.histogram("availability_latency_milliseconds",
		"End-to-end availability computation latency in milliseconds", m.histogramBuckets)
	m.daysScanned = m.counter("availability_days_scanned_total",
		"Calendar days built and merged")
	m.membersScanned = m.counter("availability_members_scanned_total",
		"Member calendars read for availability")
	m.slotsEmitted = m.counterVec("slots_emitted_total",
		"Availability slots emitted by classification", "classification")

	m.materializations = m.counterVec("materializations_total",
		"Meeting materializations by outcome (complete, partial, failed)", "outcome")
	m.materializationLatency = m.histogram("materialization_latency_milliseconds",
		"Meeting materialization latency in milliseconds", m.histogramBuckets)
	m.memberWrites = m.counterVec("member_writes_total",
		"Per-member event writes by outcome", "outcome")
	m.duplicateRequests = m.counter("duplicate_requests_total",
		"Meeting confirmations rejected by idempotency key")

	m.writeQueueSize = m.gauge("write_queue_size", "Pending member write jobs")
	m.writeQueueCapacity = m.gauge("write_queue_capacity", "Capacity of the member write queue")
	m.workerActiveCount = m.gauge("write_workers_active", "Write workers currently running")

	m.storeOperationLatency = m.histogramVec("store_operation_latency_milliseconds",
		"Event store operation latency in milliseconds", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Event store errors by operation", "op")
	m.storeRetries = m.counter("store_retries_total", "Event store retries after transient errors")

	m.icsEvents = m.counterVec("ics_events_total", "iCalendar events by import result", "result")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordAvailabilityComputation counts one computation and its latency.
func RecordAvailabilityComputation(outcome string, latencyMs float64) {
	globalManager.availabilityComputations.WithLabelValues(outcome).Inc()
	globalManager.availabilityLatency.Observe(latencyMs)
}

// RecordDaysScanned adds n scanned days.
func RecordDaysScanned(n int) {
	globalManager.daysScanned.Add(float64(n))
}

// RecordMembersScanned adds n read member calendars.
func RecordMembersScanned(n int) {
	globalManager.membersScanned.Add(float64(n))
}

// RecordSlotsEmitted adds n emitted slots of the given classification.
func RecordSlotsEmitted(classification string, n int) {
	globalManager.slotsEmitted.WithLabelValues(classification).Add(float64(n))
}

// RecordMaterialization counts one materialization and its latency.
func RecordMaterialization(outcome string, latencyMs float64) {
	globalManager.materializations.WithLabelValues(outcome).Inc()
	globalManager.materializationLatency.Observe(latencyMs)
}

// RecordMemberWrite counts one per-member write outcome.
func RecordMemberWrite(outcome string) {
	globalManager.memberWrites.WithLabelValues(outcome).Inc()
}

// RecordDuplicateRequest counts a confirmation rejected as duplicate.
func RecordDuplicateRequest() {
	globalManager.duplicateRequests.Inc()
}

// UpdateWriteQueueSize sets the number of pending write jobs.
func UpdateWriteQueueSize(size int) {
	globalManager.writeQueueSize.Set(float64(size))
}

// UpdateWriteQueueCapacity sets the write queue capacity.
func UpdateWriteQueueCapacity(capacity int) {
	globalManager.writeQueueCapacity.Set(float64(capacity))
}

// AddWorkerActive adjusts the running write worker gauge by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordStoreOperation records the latency of one store operation.
func RecordStoreOperation(op string, latencyMs float64) {
	globalManager.storeOperationLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// RecordStoreRetry counts a retried store operation.
func RecordStoreRetry() {
	globalManager.storeRetries.Inc()
}

// RecordICSEvents adds n iCalendar events with the given result (imported, skipped, exported).
func RecordICSEvents(result string, n int) {
	globalManager.icsEvents.WithLabelValues(result).Add(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records errors by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

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
