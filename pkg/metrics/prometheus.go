// Package metrics provides Prometheus metrics for the lead score service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the lead score service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Pipeline
	stageDuration      *prometheus.HistogramVec
	pipelineOutcomes   *prometheus.CounterVec
	validationWarnings prometheus.Counter
	attachmentsReused  prometheus.Counter

	// Vendor calls
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	templateCache    *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Namespace and Subsystem prefix every metric the service exports.
const (
	Namespace = "leadscore"
	Subsystem = "service"
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(
		WithNamespace(Namespace),
		WithSubsystem(Subsystem),
		WithHistogramBuckets(defaultBuckets),
		WithPrometheusRegistry(customRegistry),
	)
}

// defaultBuckets covers vendor round trips in milliseconds.
var defaultBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// NewManager creates a new metrics manager. Without options metric names
// carry no prefix and latency histograms use prometheus.DefBuckets.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.stageDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "pipeline_stage_duration_milliseconds",
			Help:        "Duration of each pipeline transition in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"stage"},
	)

	m.pipelineOutcomes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "pipeline_outcomes_total",
			Help:        "Processed leads by last reached state and result",
			ConstLabels: labels,
		},
		[]string{"state", "result"},
	)

	m.validationWarnings = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "validation_warnings_total",
		Help:        "Data-quality warnings raised while normalizing leads",
		ConstLabels: labels,
	})

	m.attachmentsReused = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "attachments_reused_total",
		Help:        "Attach calls answered from the attachment ledger",
		ConstLabels: labels,
	})

	m.upstreamRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "upstream_requests_total",
			Help:        "Vendor API calls by operation and status code",
			ConstLabels: labels,
		},
		[]string{"operation", "status_code"},
	)

	m.upstreamDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "upstream_request_duration_milliseconds",
			Help:        "Vendor API call duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	m.templateCache = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "template_cache_total",
			Help:        "Template cache lookups by result",
			ConstLabels: labels,
		},
		[]string{"result"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordStageDuration records how long one pipeline transition took.
func RecordStageDuration(stage string, latencyMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(latencyMs)
}

// RecordPipelineOutcome counts a finished request by the last state it
// reached and its result kind.
func RecordPipelineOutcome(state, result string) {
	globalManager.pipelineOutcomes.WithLabelValues(state, result).Inc()
}

// RecordValidationWarnings adds n data-quality warnings.
func RecordValidationWarnings(n int) {
	if n > 0 {
		globalManager.validationWarnings.Add(float64(n))
	}
}

// RecordAttachmentReused counts an attach served from the ledger.
func RecordAttachmentReused() {
	globalManager.attachmentsReused.Inc()
}

// RecordUpstreamRequest counts one vendor call and its duration. A transport
// failure is reported with status code "error".
func RecordUpstreamRequest(operation, statusCode string, latencyMs float64) {
	globalManager.upstreamRequests.WithLabelValues(operation, statusCode).Inc()
	globalManager.upstreamDuration.WithLabelValues(operation).Observe(latencyMs)
}

// RecordTemplateCacheHit counts a template served from cache.
func RecordTemplateCacheHit() {
	globalManager.templateCache.WithLabelValues("hit").Inc()
}

// RecordTemplateCacheMiss counts a template download.
func RecordTemplateCacheMiss() {
	globalManager.templateCache.WithLabelValues("miss").Inc()
}

// RecordErrorByComponent increments the error counter for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage updates the system memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine count gauge.
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
