package config

import (
	"github.com/marmos91/dittodrive/pkg/metrics"
	promMetrics "github.com/marmos91/dittodrive/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Drive records engine operations (never nil, uses noop if disabled)
	Drive metrics.DriveMetrics

	// GC records orphan collection runs (never nil, uses noop if disabled)
	GC metrics.GCMetrics

	// Store records backend store calls (nil if disabled, stores stay unwrapped)
	Store metrics.StoreMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Drive: metrics.NewNoopDriveMetrics(),
			GC:    metrics.NewNoopGCMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	return &MetricsResult{
		Server: server,
		Drive:  promMetrics.NewDriveMetrics(),
		GC:     promMetrics.NewGCMetrics(),
		Store:  promMetrics.NewStoreMetrics(),
	}
}
