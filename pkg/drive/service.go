// Package drive implements the entity store: the owner-scoped operations on
// files and folders of a personal drive.
//
// A Service combines a metadata.DocumentStore (records) with a
// content.BlobStore (bytes). Every operation takes the caller's owner id and
// fails with Unauthorized when the addressed entity belongs to someone else.
//
// Errors carry a metadata.ErrorCode:
//   - InvalidArgument: missing or malformed input
//   - NotFound: the entity does not exist
//   - Unauthorized: the entity belongs to another owner
//   - UpstreamFailure: a store call failed
//   - PartialFailure: a cascade left some descendants unprocessed
package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittodrive/pkg/cascade"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/hierarchy"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/marmos91/dittodrive/pkg/search"
)

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Store metadata.DocumentStore
	Blobs content.BlobStore

	Cascade   cascade.Config
	Search    search.Config
	Hierarchy hierarchy.ResolverConfig

	// Metrics is optional.
	Metrics metrics.DriveMetrics
}

// Service is the entity store.
//
// Thread safety:
// A Service is safe for concurrent use. It provides no per-entity mutual
// exclusion: concurrent mutations of the same id race and the last write
// wins.
type Service struct {
	store    metadata.DocumentStore
	blobs    content.BlobStore
	resolver *hierarchy.Resolver
	engine   *cascade.Engine
	searcher search.Searcher
	index    *search.Index
	metrics  metrics.DriveMetrics
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("drive service: document store is required")
	}
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("drive service: blob store is required")
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNoopDriveMetrics()
	}

	resolver := hierarchy.NewResolver(cfg.Store, cfg.Hierarchy)
	engine := cascade.NewEngine(cfg.Store, cfg.Blobs, resolver, cfg.Cascade, m)

	searcher, err := search.New(cfg.Search, cfg.Store, resolver.MaxDepth(), m)
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:    cfg.Store,
		blobs:    cfg.Blobs,
		resolver: resolver,
		engine:   engine,
		searcher: searcher,
		metrics:  m,
	}

	if ix, ok := searcher.(*search.Index); ok {
		s.index = ix
		engine.AddListener(ix)
	}

	return s, nil
}

// Close releases the document store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Resolver exposes the hierarchy resolver used by the service.
func (s *Service) Resolver() *hierarchy.Resolver {
	return s.resolver
}

func (s *Service) track(op string, start time.Time, err error) {
	s.metrics.RecordOperation(op, time.Since(start), err)
}

// fetchOwned loads id and checks that ownerID owns it.
func (s *Service) fetchOwned(ctx context.Context, id, ownerID string) (*metadata.Entity, error) {
	if id == "" {
		return nil, metadata.NewInvalidArgumentError("entity id is required")
	}
	if ownerID == "" {
		return nil, metadata.NewInvalidArgumentError("owner id is required")
	}

	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, metadata.NewUpstreamError("get "+id, err)
	}
	if e.OwnerID != ownerID {
		return nil, metadata.NewUnauthorizedError(id)
	}
	return e, nil
}

// checkParent validates a destination folder for a new entity.
func (s *Service) checkParent(ctx context.Context, parentID, ownerID string) error {
	if parentID == "" {
		return nil
	}

	parent, err := s.fetchOwned(ctx, parentID, ownerID)
	if err != nil {
		return err
	}
	if !parent.IsFolder() {
		return metadata.NewInvalidArgumentError("parent %s is not a folder", parentID)
	}
	if parent.InTrash {
		return metadata.NewInvalidArgumentError("parent %s is in trash", parentID)
	}
	return nil
}

func (s *Service) now(ctx context.Context) (time.Time, error) {
	now, err := s.store.Now(ctx)
	if err != nil {
		return time.Time{}, metadata.NewUpstreamError("read server time", err)
	}
	return now, nil
}

// update applies patch to e in the store and in place.
func (s *Service) update(ctx context.Context, e *metadata.Entity, patch metadata.Patch) error {
	if err := s.store.Update(ctx, e.ID, patch); err != nil {
		return metadata.NewUpstreamError("update "+e.ID, err)
	}
	patch.Apply(e)
	s.indexPut(e)
	return nil
}

func (s *Service) indexPut(e *metadata.Entity) {
	if s.index != nil {
		s.index.Put(e)
	}
}

func (s *Service) indexRemove(e *metadata.Entity) {
	if s.index != nil {
		s.index.Remove(e)
	}
}
