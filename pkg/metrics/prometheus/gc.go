package prometheus

import (
	"time"

	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// gcMetrics is the Prometheus implementation of metrics.GCMetrics.
type gcMetrics struct {
	runsTotal      *prometheus.CounterVec
	blobsScanned   prometheus.Counter
	orphansFound   prometheus.Counter
	orphansRemoved prometheus.Counter
	bytesFreed     prometheus.Counter
	runDuration    prometheus.Histogram
	lastRun        prometheus.Gauge
}

// NewGCMetrics creates a Prometheus-backed GCMetrics on the global registry.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewGCMetrics() metrics.GCMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopGCMetrics()
	}
	return NewGCMetricsWith(metrics.GetRegistry())
}

// NewGCMetricsWith registers the collector metrics on reg.
func NewGCMetricsWith(reg prometheus.Registerer) metrics.GCMetrics {
	return &gcMetrics{
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_gc_runs_total",
				Help: "Total number of orphan collection passes by status",
			},
			[]string{"status"},
		),
		blobsScanned: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_gc_blobs_scanned_total",
				Help: "Blobs listed by the orphan collector",
			},
		),
		orphansFound: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_gc_orphans_found_total",
				Help: "Blobs found without a referencing record",
			},
		),
		orphansRemoved: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_gc_orphans_removed_total",
				Help: "Orphaned blobs removed",
			},
		),
		bytesFreed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_gc_bytes_freed_total",
				Help: "Bytes reclaimed by removing orphaned blobs",
			},
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dittodrive_gc_run_duration_seconds",
				Help:    "Duration of orphan collection passes in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		lastRun: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittodrive_gc_last_run_timestamp_seconds",
				Help: "Unix time of the last completed collection pass",
			},
		),
	}
}

func (m *gcMetrics) RecordRun(scanned, orphans, removed int, bytesFreed int64, duration time.Duration, err error) {
	if err != nil {
		m.runsTotal.WithLabelValues("error").Inc()
	} else {
		m.runsTotal.WithLabelValues("success").Inc()
		m.lastRun.SetToCurrentTime()
	}
	m.blobsScanned.Add(float64(scanned))
	m.orphansFound.Add(float64(orphans))
	m.orphansRemoved.Add(float64(removed))
	m.bytesFreed.Add(float64(bytesFreed))
	m.runDuration.Observe(duration.Seconds())
}
