package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/gc"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"go.uber.org/multierr"
)

// Runtime holds the components wired from a configuration.
type Runtime struct {
	Store     metadata.DocumentStore
	Blobs     content.BlobStore
	Service   *drive.Service
	Collector *gc.Collector
}

// InitializeRuntime creates the stores, the drive service and the orphan
// collector described by cfg.
//
// This function orchestrates the complete initialization process:
//  1. Creates the document store from cfg.Metadata
//  2. Creates the blob store from cfg.Content
//  3. Builds the drive service on top of both
//  4. Builds the orphan collector (not started)
//
// When m carries StoreMetrics both stores are wrapped so that every backend
// call is recorded. When m carries a Server, its /readyz endpoint is bound to
// the document store.
//
// On failure every component created so far is closed. m may be nil, in which
// case metrics are disabled.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	rt, err := config.InitializeRuntime(ctx, cfg, config.InitializeMetrics(cfg))
//	if err != nil {
//	    log.Fatalf("Failed to initialize: %v", err)
//	}
//	defer rt.Close()
func InitializeRuntime(ctx context.Context, cfg *Config, m *MetricsResult) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if m == nil {
		m = &MetricsResult{}
	}

	logger.Debug("Initializing runtime: metadata=%s content=%s search=%s",
		cfg.Metadata.Type, cfg.Content.Type, cfg.Search.Mode)

	store, err := CreateDocumentStore(ctx, &cfg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata store: %w", err)
	}
	store = metadata.Instrument(store, cfg.Metadata.Type, m.Store)

	blobs, err := CreateBlobStore(ctx, &cfg.Content)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to create content store: %w", err), store.Close())
	}
	blobs = content.Instrument(blobs, cfg.Content.Type, m.Store)

	svc, err := drive.NewService(drive.ServiceConfig{
		Store:     store,
		Blobs:     blobs,
		Cascade:   cfg.Cascade,
		Search:    cfg.Search,
		Hierarchy: cfg.Hierarchy,
		Metrics:   m.Drive,
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to create drive service: %w", err), store.Close())
	}

	collector, err := gc.NewCollector(store, blobs, cfg.GC, m.GC)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to create orphan collector: %w", err), svc.Close())
	}

	if m.Server != nil {
		m.Server.SetReadyCheck(func(ctx context.Context) error {
			_, err := store.Now(ctx)
			return err
		})
	}

	logger.Debug("Runtime initialized")
	return &Runtime{
		Store:     store,
		Blobs:     blobs,
		Service:   svc,
		Collector: collector,
	}, nil
}

// Close releases the service and its stores. The collector must be stopped
// first.
func (r *Runtime) Close() error {
	return r.Service.Close()
}
