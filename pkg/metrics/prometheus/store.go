package prometheus

import (
	"time"

	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storeMetrics is the Prometheus implementation of metrics.StoreMetrics.
type storeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewStoreMetrics creates a Prometheus-backed StoreMetrics on the global registry.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewStoreMetrics() metrics.StoreMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopStoreMetrics()
	}
	return NewStoreMetricsWith(metrics.GetRegistry())
}

// NewStoreMetricsWith registers the store metrics on reg.
func NewStoreMetricsWith(reg prometheus.Registerer) metrics.StoreMetrics {
	return &storeMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_store_operations_total",
				Help: "Total number of backend store calls by kind, backend, operation, and status",
			},
			[]string{"kind", "backend", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodrive_store_operation_duration_seconds",
				Help: "Duration of backend store calls in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.025,  // 25ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.25,   // 250ms
					0.5,    // 500ms
					1.0,    // 1s
					5.0,    // 5s
				},
			},
			[]string{"kind", "backend", "operation"},
		),
	}
}

func (m *storeMetrics) RecordStoreOperation(kind, backend, operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(kind, backend, operation, status(err)).Inc()
	m.operationDuration.WithLabelValues(kind, backend, operation).Observe(duration.Seconds())
}
