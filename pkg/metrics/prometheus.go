// Package metrics provides Prometheus metrics for the complexity engine.
package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Region computation
	regionsComputed   *prometheus.CounterVec
	regionsFailed     *prometheus.CounterVec
	regionsDegenerate *prometheus.CounterVec
	regionDuration    *prometheus.HistogramVec
	iterationRounds   prometheus.Histogram
	matrixJobs        *prometheus.GaugeVec
	matrixTasks       *prometheus.GaugeVec
	matrixNonZeros    *prometheus.GaugeVec

	// Pipeline runs
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	outputRows  *prometheus.GaugeVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerBusyCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Store
	storeQueryLatency *prometheus.HistogramVec
	storeRows         *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared registry served on /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "jci",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.regionsComputed = auto.NewCounterVec(m.counterOpts("regions_computed_total", "Regions computed successfully"), []string{"region_type"})
	m.regionsFailed = auto.NewCounterVec(m.counterOpts("regions_failed_total", "Regions whose computation failed"), []string{"region_type", "reason"})
	m.regionsDegenerate = auto.NewCounterVec(m.counterOpts("regions_degenerate_total", "Regions with an empty filtered matrix"), []string{"region_type"})
	m.regionDuration = auto.NewHistogramVec(m.histogramOpts("region_compute_duration_milliseconds", "Wall time of one region computation in milliseconds", m.histogramBuckets), []string{"region_type"})
	m.iterationRounds = auto.NewHistogram(m.histogramOpts("iteration_rounds", "Rounds run per region", []float64{1, 5, 10, 20, 50, 100, 250, 1000}))
	m.matrixJobs = auto.NewGaugeVec(m.gaugeOpts("matrix_jobs", "Rows of the last computed matrix"), []string{"region_type"})
	m.matrixTasks = auto.NewGaugeVec(m.gaugeOpts("matrix_tasks", "Columns of the last computed matrix"), []string{"region_type"})
	m.matrixNonZeros = auto.NewGaugeVec(m.gaugeOpts("matrix_nonzeros", "Stored entries of the last computed matrix"), []string{"region_type"})

	m.runs = auto.NewCounterVec(m.counterOpts("runs_total", "Pipeline runs by outcome"), []string{"status"})
	m.runDuration = auto.NewHistogram(m.histogramOpts("run_duration_milliseconds", "Wall time of a pipeline run in milliseconds", m.histogramBuckets))
	m.outputRows = auto.NewGaugeVec(m.gaugeOpts("output_rows", "Rows written by the last run"), []string{"table"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Region tasks waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Region tasks enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Region tasks dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Rejected enqueues"))

	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers in the pool"))
	m.workerBusyCount = auto.NewGauge(m.gaugeOpts("worker_busy_count", "Workers currently computing a region"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Time a worker spends on one task in milliseconds", m.histogramBuckets))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Tasks that ended in an error"))

	m.storeQueryLatency = auto.NewHistogramVec(m.histogramOpts("store_query_latency_milliseconds", "Result store latency in milliseconds", m.histogramBuckets), []string{"operation"})
	m.storeRows = auto.NewGaugeVec(m.gaugeOpts("store_rows", "Rows stored for the latest run"), []string{"table"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordRegionComputed counts a successful region and records its matrix shape.
func RecordRegionComputed(regionType string, jobs, tasks, nonZeros, rounds int, latencyMs float64) {
	globalManager.regionsComputed.WithLabelValues(regionType).Inc()
	globalManager.regionDuration.WithLabelValues(regionType).Observe(latencyMs)
	globalManager.iterationRounds.Observe(float64(rounds))
	globalManager.matrixJobs.WithLabelValues(regionType).Set(float64(jobs))
	globalManager.matrixTasks.WithLabelValues(regionType).Set(float64(tasks))
	globalManager.matrixNonZeros.WithLabelValues(regionType).Set(float64(nonZeros))
}

// RecordRegionFailed counts a failed region.
func RecordRegionFailed(regionType, reason string) {
	globalManager.regionsFailed.WithLabelValues(regionType, reason).Inc()
}

// RecordRegionDegenerate counts a region with an empty filtered matrix.
func RecordRegionDegenerate(regionType string) {
	globalManager.regionsDegenerate.WithLabelValues(regionType).Inc()
}

// RecordRun counts a pipeline run with its outcome and duration.
func RecordRun(status string, latencyMs float64) {
	globalManager.runs.WithLabelValues(status).Inc()
	globalManager.runDuration.Observe(latencyMs)
}

// UpdateOutputRows sets the number of rows written for a table.
func UpdateOutputRows(table string, rows int) {
	globalManager.outputRows.WithLabelValues(table).Set(float64(rows))
}

// UpdateQueueSize sets the current queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of workers in the pool.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// AddWorkerBusy adjusts the number of busy workers by delta.
func AddWorkerBusy(delta int) {
	globalManager.workerBusyCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records the time spent on one task.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateStoreRows sets the number of stored rows for a table.
func UpdateStoreRows(table string, rows int) {
	globalManager.storeRows.WithLabelValues(table).Set(float64(rows))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMetrics samples heap usage and goroutine count.
func UpdateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.HeapInuse))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
