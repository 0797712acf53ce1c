package config

import (
	"strings"
	"time"

	"github.com/marmos91/dittodrive/pkg/cascade"
	"github.com/marmos91/dittodrive/pkg/gc"
	"github.com/marmos91/dittodrive/pkg/hierarchy"
	"github.com/marmos91/dittodrive/pkg/search"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyMetricsDefaults(&cfg.Metrics)
	applyMetadataDefaults(&cfg.Metadata)
	applyContentDefaults(&cfg.Content)
	applyCascadeDefaults(&cfg.Cascade)
	applySearchDefaults(&cfg.Search)
	applyHierarchyDefaults(&cfg.Hierarchy)
	applyGCDefaults(&cfg.GC)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyMetadataDefaults sets document store defaults.
func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.Postgres == nil {
		cfg.Postgres = make(map[string]any)
	}

	// Defaults for every store type, so generated files show them all
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/dittodrive-metadata"
	}
	if _, ok := cfg.Postgres["max_conns"]; !ok {
		cfg.Postgres["max_conns"] = 10
	}
	if _, ok := cfg.Postgres["auto_migrate"]; !ok {
		cfg.Postgres["auto_migrate"] = true
	}
}

// applyContentDefaults sets blob store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "/tmp/dittodrive-content"
	}
	if _, ok := cfg.Memory["max_size_bytes"]; !ok {
		cfg.Memory["max_size_bytes"] = uint64(1073741824) // 1GB
	}
	if _, ok := cfg.S3["url_expiry"]; !ok {
		cfg.S3["url_expiry"] = "1h"
	}
	if _, ok := cfg.S3["max_retries"]; !ok {
		cfg.S3["max_retries"] = 10
	}
}

func applyCascadeDefaults(cfg *cascade.Config) {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = cascade.DefaultConcurrency
	}
}

func applySearchDefaults(cfg *search.Config) {
	if cfg.Mode == "" {
		cfg.Mode = search.ModeIndex
	}
}

func applyHierarchyDefaults(cfg *hierarchy.ResolverConfig) {
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = hierarchy.DefaultMaxDepth
	}
}

// applyGCDefaults sets collector defaults. Collection stays disabled unless
// explicitly enabled.
func applyGCDefaults(cfg *gc.Config) {
	if cfg.Interval == 0 {
		cfg.Interval = gc.DefaultInterval
	}
	if cfg.MinAge == 0 {
		cfg.MinAge = gc.DefaultMinAge
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = gc.DefaultConcurrency
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
