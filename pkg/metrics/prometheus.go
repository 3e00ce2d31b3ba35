// Package metrics provides Prometheus metrics for the lead scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds; AI calls dominate the upper range.
var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// scoring
	leadsScored       *prometheus.CounterVec
	scoringLatency    prometheus.Histogram
	validationErrors  prometheus.Counter
	blendApplications prometheus.Counter
	totalScore        prometheus.Histogram

	// ai adapter
	aiCalls   *prometheus.CounterVec
	aiLatency prometheus.Histogram

	// persistence
	persistenceErrors *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	storedLeads       prometheus.Gauge
	storeLatency      *prometheus.HistogramVec

	// bulk
	bulkBatches      prometheus.Counter
	bulkLeadFailures prometheus.Counter
	bulkBatchLatency prometheus.Histogram

	// queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	signalsDuplicate   prometheus.Counter

	// workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// calibration
	estimationsRecorded prometheus.Counter
	reconciliations     *prometheus.CounterVec
	calibrationAccuracy prometheus.Histogram

	// http
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// errors and runtime
	errorsByComponent    *prometheus.CounterVec
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide collectors

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global collectors must exist before first use
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "leadscore",
		subsystem:        "engine",
		histogramBuckets: defaultLatencyBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
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

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one registration per collector
	scoreBuckets := prometheus.LinearBuckets(0, 10, 11)
	ratioBuckets := prometheus.LinearBuckets(0, 0.1, 11)

	m.leadsScored = m.counterVec("leads_scored_total", "Leads scored, by qualification level", "level")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "End to end ScoreLead latency", m.histogramBuckets)
	m.validationErrors = m.counter("validation_errors_total", "Lead records rejected by validation")
	m.blendApplications = m.counter("blend_applications_total", "Results adjusted by the statistical classifier")
	m.totalScore = m.histogram("total_score", "Distribution of composite lead scores", scoreBuckets)

	m.aiCalls = m.counterVec("ai_calls_total", "AI qualification calls, by result", "result")
	m.aiLatency = m.histogram("ai_latency_milliseconds", "AI qualification call latency", m.histogramBuckets)

	m.persistenceErrors = m.counterVec("persistence_errors_total", "Failed store or cache writes", "target")
	m.cacheLookups = m.counterVec("cache_lookups_total", "Score cache lookups, by result", "result")
	m.storedLeads = m.gauge("stored_leads", "Number of leads with a persisted score")
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Score store operation latency", "op")

	m.bulkBatches = m.counter("bulk_batches_total", "Bulk scoring batches executed")
	m.bulkLeadFailures = m.counter("bulk_lead_failures_total", "Leads that failed inside a bulk job")
	m.bulkBatchLatency = m.histogram("bulk_batch_latency_milliseconds", "Wall time of one bulk batch", m.histogramBuckets)

	m.queueSize = m.gauge("queue_size", "Leads waiting in the async scoring queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the async scoring queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Leads accepted onto the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Leads taken off the queue")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Leads rejected because the queue was full or closed")
	m.signalsDuplicate = m.counter("signals_duplicate_total", "Ingestion signals dropped as duplicates")

	m.workerCount = m.gauge("worker_count", "Configured scoring workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently scoring a lead")
	m.workerIdleCount = m.gauge("worker_idle_count", "Workers waiting for a lead")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per job worker latency", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Queued jobs that failed to score")

	m.estimationsRecorded = m.counter("calibration_estimations_total", "Estimations recorded for calibration")
	m.reconciliations = m.counterVec("calibration_reconciliations_total", "Reconciled estimations, by outcome", "outcome")
	m.calibrationAccuracy = m.histogram("calibration_accuracy", "Accuracy of reconciled estimations", ratioBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")
	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// Scoring.

// RecordLeadScored counts a scored lead under its qualification level.
func RecordLeadScored(level string, totalScore float64) {
	globalManager.leadsScored.WithLabelValues(level).Inc()
	globalManager.totalScore.Observe(totalScore)
}

// RecordScoringLatency records ScoreLead latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordValidationError counts a rejected lead record.
func RecordValidationError() {
	globalManager.validationErrors.Inc()
}

// RecordBlendApplied counts results adjusted by the classifier.
func RecordBlendApplied() {
	globalManager.blendApplications.Inc()
}

// AI adapter.

// RecordAICall counts an AI qualification attempt. result is "ok", "error" or "timeout".
func RecordAICall(result string, latencyMs float64) {
	globalManager.aiCalls.WithLabelValues(result).Inc()
	globalManager.aiLatency.Observe(latencyMs)
}

// Persistence.

// RecordPersistenceError counts a failed write to target ("store" or "cache").
func RecordPersistenceError(target string) {
	globalManager.persistenceErrors.WithLabelValues(target).Inc()
}

// RecordCacheLookup counts a cache lookup; hit reports whether a value was found.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.cacheLookups.WithLabelValues(result).Inc()
}

// UpdateStoredLeads sets the number of persisted lead scores.
func UpdateStoredLeads(count int) {
	globalManager.storedLeads.Set(float64(count))
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// Bulk.

// RecordBulkBatch records one completed bulk batch.
func RecordBulkBatch(latencyMs float64, failures int) {
	globalManager.bulkBatches.Inc()
	globalManager.bulkBatchLatency.Observe(latencyMs)
	globalManager.bulkLeadFailures.Add(float64(failures))
}

// Queue.

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets size/capacity.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
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

// RecordSignalDuplicate counts an ingestion signal dropped by the deduper.
func RecordSignalDuplicate() {
	globalManager.signalsDuplicate.Inc()
}

// Workers.

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

// RecordWorkerProcessingLatency records per job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed queued job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Calibration.

// RecordEstimation counts a recorded estimation.
func RecordEstimation() {
	globalManager.estimationsRecorded.Inc()
}

// RecordReconciliation counts a reconciled estimation and observes its accuracy.
func RecordReconciliation(success bool, accuracy float64) {
	outcome := "lost"
	if success {
		outcome = "won"
	}
	globalManager.reconciliations.WithLabelValues(outcome).Inc()
	globalManager.calibrationAccuracy.Observe(accuracy)
}

// HTTP.

// RecordHTTPRequest increments the request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors and runtime.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry the global collectors live in.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
