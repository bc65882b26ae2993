// Package metrics exposes Prometheus instrumentation for the prescription
// pipeline: scan throughput, per-stage latency and failures, validation
// note counts, OCR confidence, and the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage labels.
const (
	StageOCR      = "ocr"
	StageExtract  = "extract"
	StageValidate = "validate"
	StageExport   = "export"
)

// Manager owns the pipeline's collectors. All of them register on a single
// configurable registry so tests can isolate themselves from the global one.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	scansProcessed *prometheus.CounterVec
	stageLatency   *prometheus.HistogramVec
	stageErrors    *prometheus.CounterVec

	validationNotes *prometheus.CounterVec
	ocrConfidence   prometheus.Histogram

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// The package-level Record helpers write through this shared manager. Its
// registry deliberately omits the default Go runtime collectors.
var (
	customRegistry = prometheus.NewRegistry()
	globalManager  *Manager
)

func init() {
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager builds a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rxscan",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.register()

	return m
}

func (m *Manager) register() {
	auto := promauto.With(m.registry)

	m.scansProcessed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "scans_processed_total",
			Help:      "Total number of prescription scans processed, by final envelope status",
		},
		[]string{"status"},
	)

	m.stageLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stage_latency_milliseconds",
			Help:      "Histogram of per-stage processing latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"stage"},
	)

	m.stageErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stage_errors_total",
			Help:      "Total number of stage failures, by pipeline stage",
		},
		[]string{"stage"},
	)

	m.validationNotes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "validation_notes_total",
			Help:      "Total number of validation corrections and rejections, by note kind",
		},
		[]string{"kind"},
	)

	m.ocrConfidence = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ocr_confidence",
		Help:      "Histogram of average OCR confidence per scan (0.0 - 1.0)",
		Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99},
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordScanProcessed counts one finished scan under its final status.
func RecordScanProcessed(status string) {
	globalManager.scansProcessed.WithLabelValues(status).Inc()
}

// RecordStageLatency observes one stage's latency in milliseconds.
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordStageError counts one stage failure.
func RecordStageError(stage string) {
	globalManager.stageErrors.WithLabelValues(stage).Inc()
}

// RecordValidationNote counts one validation note under its kind.
func RecordValidationNote(kind string) {
	globalManager.validationNotes.WithLabelValues(kind).Inc()
}

// RecordOCRConfidence observes the average OCR confidence of one scan.
func RecordOCRConfidence(confidence float64) {
	globalManager.ocrConfidence.Observe(confidence)
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request's duration in
// milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the registry behind the package-level helpers, for
// mounting a /metrics handler or scraping in tests.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
