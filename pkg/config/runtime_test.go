package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittodrive/pkg/metrics"
)

func memoryConfig() *Config {
	cfg := GetDefaultConfig()
	cfg.Content.Type = "memory"
	cfg.GC.MinAge = time.Nanosecond
	return cfg
}

func TestInitializeRuntime_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()

	rt, err := InitializeRuntime(ctx, cfg, InitializeMetrics(cfg))
	if err != nil {
		t.Fatalf("InitializeRuntime failed: %v", err)
	}
	defer func() { _ = rt.Close() }()

	if rt.Service == nil || rt.Collector == nil {
		t.Fatal("Expected service and collector to be built")
	}

	f, err := rt.Service.CreateFolder(ctx, "Docs", "alice", "")
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}

	list, err := rt.Service.List(ctx, "alice", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != f.ID {
		t.Errorf("Expected the new folder in the root listing, got %v", list)
	}

	stats, err := rt.Collector.RunNow(ctx)
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if stats.Scanned != 0 {
		t.Errorf("Expected empty blob store, scanned %d", stats.Scanned)
	}
}

func TestInitializeRuntime_StoreFailure(t *testing.T) {
	cfg := memoryConfig()
	cfg.Content.Type = "s3"

	_, err := InitializeRuntime(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("Expected error for s3 without bucket")
	}
	if !strings.Contains(err.Error(), "failed to create content store") {
		t.Errorf("Expected content store error, got: %v", err)
	}
}

func TestInitializeRuntime_NilConfig(t *testing.T) {
	if _, err := InitializeRuntime(context.Background(), nil, nil); err == nil {
		t.Fatal("Expected error for nil config")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()

	m := InitializeMetrics(cfg)
	if m.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if m.Drive == nil || m.GC == nil {
		t.Error("Expected no-op metrics when disabled")
	}
}

func TestInitializeRuntime_BindsReadiness(t *testing.T) {
	cfg := memoryConfig()
	m := &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{Port: 19092}),
		Drive:  metrics.NewNoopDriveMetrics(),
		GC:     metrics.NewNoopGCMetrics(),
	}

	rec := httptest.NewRecorder()
	m.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 before the runtime exists, got %d", rec.Code)
	}

	rt, err := InitializeRuntime(context.Background(), cfg, m)
	if err != nil {
		t.Fatalf("InitializeRuntime failed: %v", err)
	}
	defer func() { _ = rt.Close() }()

	rec = httptest.NewRecorder()
	m.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 once the store is up, got %d: %s", rec.Code, rec.Body.String())
	}
}
