package config

import (
	"testing"
	"time"

	"github.com/marmos91/dittodrive/pkg/cascade"
	"github.com/marmos91/dittodrive/pkg/gc"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_LogLevelNormalized(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_Content(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Content.Type != "filesystem" {
		t.Errorf("Expected default content type 'filesystem', got %q", cfg.Content.Type)
	}

	if cfg.Content.Filesystem == nil {
		t.Fatal("Expected Filesystem map to be initialized")
	}
	if path, ok := cfg.Content.Filesystem["path"]; !ok || path != "/tmp/dittodrive-content" {
		t.Errorf("Expected default filesystem path '/tmp/dittodrive-content', got %v", path)
	}

	if cfg.Content.Memory == nil {
		t.Fatal("Expected Memory map to be initialized")
	}
	if maxSize, ok := cfg.Content.Memory["max_size_bytes"]; !ok || maxSize != uint64(1073741824) {
		t.Errorf("Expected default memory max_size_bytes 1073741824, got %v", maxSize)
	}

	if cfg.Content.S3 == nil {
		t.Fatal("Expected S3 map to be initialized")
	}
	if _, ok := cfg.Content.S3["bucket"]; ok {
		t.Error("Expected no default bucket")
	}
}

func TestApplyDefaults_Metadata(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Metadata.Type != "memory" {
		t.Errorf("Expected default metadata type 'memory', got %q", cfg.Metadata.Type)
	}
	if cfg.Metadata.Badger["db_path"] != "/tmp/dittodrive-metadata" {
		t.Errorf("Expected default badger db_path, got %v", cfg.Metadata.Badger["db_path"])
	}
	if cfg.Metadata.Postgres["max_conns"] != 10 {
		t.Errorf("Expected default postgres max_conns 10, got %v", cfg.Metadata.Postgres["max_conns"])
	}
	if _, ok := cfg.Metadata.Postgres["conn_string"]; ok {
		t.Error("Expected no default postgres conn_string")
	}
}

func TestApplyDefaults_Engine(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Cascade.Concurrency != cascade.DefaultConcurrency {
		t.Errorf("Expected cascade concurrency %d, got %d", cascade.DefaultConcurrency, cfg.Cascade.Concurrency)
	}
	if cfg.Cascade.RateLimit.OpsPerSecond != 0 {
		t.Errorf("Expected unthrottled cascade by default, got %d", cfg.Cascade.RateLimit.OpsPerSecond)
	}
	if cfg.Search.Mode != "index" {
		t.Errorf("Expected search mode 'index', got %q", cfg.Search.Mode)
	}
	if cfg.Hierarchy.MaxDepth != 256 {
		t.Errorf("Expected max depth 256, got %d", cfg.Hierarchy.MaxDepth)
	}
}

func TestApplyDefaults_GC(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.GC.Enabled {
		t.Error("Expected gc disabled by default")
	}
	if cfg.GC.Interval != gc.DefaultInterval {
		t.Errorf("Expected gc interval %v, got %v", gc.DefaultInterval, cfg.GC.Interval)
	}
	if cfg.GC.MinAge != gc.DefaultMinAge {
		t.Errorf("Expected gc min_age %v, got %v", gc.DefaultMinAge, cfg.GC.MinAge)
	}
	if cfg.GC.Concurrency != gc.DefaultConcurrency {
		t.Errorf("Expected gc concurrency %d, got %d", gc.DefaultConcurrency, cfg.GC.Concurrency)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "ERROR",
			Format: "json",
			Output: "/var/log/dittodrive.log",
		},
		Server: ServerConfig{ShutdownTimeout: 5 * time.Second},
		Metadata: MetadataConfig{
			Type:   "badger",
			Badger: map[string]any{"db_path": "/data/meta"},
		},
		Content: ContentConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{"path": "/data/blobs"},
		},
		Cascade: cascade.Config{Concurrency: 2},
		GC:      gc.Config{Interval: time.Minute},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "ERROR" || cfg.Logging.Format != "json" || cfg.Logging.Output != "/var/log/dittodrive.log" {
		t.Errorf("Expected explicit logging values preserved, got %+v", cfg.Logging)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout 5s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Metadata.Badger["db_path"] != "/data/meta" {
		t.Errorf("Expected db_path preserved, got %v", cfg.Metadata.Badger["db_path"])
	}
	if cfg.Content.Filesystem["path"] != "/data/blobs" {
		t.Errorf("Expected path preserved, got %v", cfg.Content.Filesystem["path"])
	}
	if cfg.Cascade.Concurrency != 2 {
		t.Errorf("Expected cascade concurrency 2, got %d", cfg.Cascade.Concurrency)
	}
	if cfg.GC.Interval != time.Minute {
		t.Errorf("Expected gc interval 1m, got %v", cfg.GC.Interval)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("Default config should be valid, got error: %v", err)
	}
}
