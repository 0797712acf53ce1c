package prometheus

import (
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// driveMetrics is the Prometheus implementation of metrics.DriveMetrics.
type driveMetrics struct {
	operationsTotal    *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	uploadsTotal       *prometheus.CounterVec
	uploadBytes        prometheus.Counter
	uploadDuration     prometheus.Histogram
	blobRemoveFailures prometheus.Counter
	cascadesTotal      *prometheus.CounterVec
	cascadeVisited     *prometheus.HistogramVec
	cascadeFailures    *prometheus.CounterVec
	cascadeDuration    *prometheus.HistogramVec
	searchesTotal      *prometheus.CounterVec
	searchResults      *prometheus.HistogramVec
	searchDuration     *prometheus.HistogramVec
	indexedOwners      prometheus.Gauge
}

// NewDriveMetrics creates a Prometheus-backed DriveMetrics on the global registry.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewDriveMetrics() metrics.DriveMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopDriveMetrics()
	}
	return NewDriveMetricsWith(metrics.GetRegistry())
}

// NewDriveMetricsWith registers the drive metrics on reg.
func NewDriveMetricsWith(reg prometheus.Registerer) metrics.DriveMetrics {
	latency := []float64{
		0.001, // 1ms
		0.005, // 5ms
		0.025, // 25ms
		0.1,   // 100ms
		0.5,   // 500ms
		2.5,   // 2.5s
		10,    // 10s
	}

	return &driveMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_operations_total",
				Help: "Total number of drive operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittodrive_operation_duration_seconds",
				Help:    "Duration of drive operations in seconds",
				Buckets: latency,
			},
			[]string{"operation"},
		),
		uploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_uploads_total",
				Help: "Total number of uploads by status",
			},
			[]string{"status"},
		),
		uploadBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_upload_bytes_total",
				Help: "Total bytes accepted by the blob store",
			},
		),
		uploadDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dittodrive_upload_duration_seconds",
				Help:    "Duration of uploads in seconds",
				Buckets: latency,
			},
		),
		blobRemoveFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_blob_remove_failures_total",
				Help: "Best-effort blob removals that failed and were ignored",
			},
		),
		cascadesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_cascades_total",
				Help: "Total number of cascade runs by mode and final state",
			},
			[]string{"mode", "state"},
		),
		cascadeVisited: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittodrive_cascade_visited_entities",
				Help:    "Descendants dispatched per cascade run",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"mode"},
		),
		cascadeFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_cascade_failures_total",
				Help: "Failed descendant operations across cascade runs",
			},
			[]string{"mode"},
		),
		cascadeDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittodrive_cascade_duration_seconds",
				Help:    "Duration of cascade runs in seconds",
				Buckets: latency,
			},
			[]string{"mode"},
		),
		searchesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_searches_total",
				Help: "Total number of search queries by backend",
			},
			[]string{"backend"},
		),
		searchResults: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittodrive_search_results",
				Help:    "Number of results per search query",
				Buckets: prometheus.ExponentialBuckets(1, 4, 6),
			},
			[]string{"backend"},
		),
		searchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittodrive_search_duration_seconds",
				Help:    "Duration of search queries in seconds",
				Buckets: latency,
			},
			[]string{"backend"},
		),
		indexedOwners: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittodrive_search_indexed_owners",
				Help: "Number of owners currently held by the search index",
			},
		),
	}
}

func (m *driveMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(operation, status(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *driveMetrics) RecordUpload(bytes int64, duration time.Duration, err error) {
	m.uploadsTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.uploadBytes.Add(float64(bytes))
	}
	m.uploadDuration.Observe(duration.Seconds())
}

func (m *driveMetrics) RecordBlobRemoveFailure() {
	m.blobRemoveFailures.Inc()
}

func (m *driveMetrics) RecordCascade(mode, state string, visited, failures int, duration time.Duration) {
	m.cascadesTotal.WithLabelValues(mode, state).Inc()
	m.cascadeVisited.WithLabelValues(mode).Observe(float64(visited))
	m.cascadeFailures.WithLabelValues(mode).Add(float64(failures))
	m.cascadeDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func (m *driveMetrics) RecordSearch(backend string, results int, duration time.Duration) {
	m.searchesTotal.WithLabelValues(backend).Inc()
	m.searchResults.WithLabelValues(backend).Observe(float64(results))
	m.searchDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

func (m *driveMetrics) SetIndexedOwners(count int) {
	m.indexedOwners.Set(float64(count))
}

// status maps an error onto a low-cardinality label value.
func status(err error) string {
	if err == nil {
		return "success"
	}
	if code, ok := metadata.CodeOf(err); ok {
		return code.String()
	}
	return "error"
}
