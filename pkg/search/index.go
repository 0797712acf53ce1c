package search

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/hierarchy"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Index is an in-memory search index keyed by owner.
//
// An owner is loaded from the document store on its first query and kept
// current afterwards through Put and Remove, which the drive service calls
// after every successful mutation. The index also implements
// cascade.Listener so that cascades keep it current.
//
// Mutations for an owner that is being loaded mark the load stale; the
// loaded snapshot is then served once but not cached.
type Index struct {
	store    metadata.DocumentStore
	maxDepth int
	metrics  metrics.DriveMetrics

	loads singleflight.Group

	mu     sync.RWMutex
	owners map[string]*ownerIndex
	// epoch counts mutations per owner, loaded or not.
	epoch map[string]uint64
}

type ownerIndex struct {
	forest *hierarchy.Forest
	folded map[string]string
}

// NewIndex creates an empty Index. m may be nil.
func NewIndex(store metadata.DocumentStore, maxDepth int, m metrics.DriveMetrics) *Index {
	if m == nil {
		m = metrics.NewNoopDriveMetrics()
	}
	return &Index{
		store:    store,
		maxDepth: maxDepth,
		metrics:  m,
		owners:   make(map[string]*ownerIndex),
		epoch:    make(map[string]uint64),
	}
}

func (ix *Index) Search(ctx context.Context, ownerID, term string) ([]*metadata.Entity, error) {
	if ownerID == "" {
		return nil, metadata.NewInvalidArgumentError("owner id is required")
	}
	start := time.Now()

	oi, err := ix.owner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	folded := fold(term)
	hits := make([]*metadata.Entity, 0)

	ix.mu.RLock()
	oi.forest.Each(func(e *metadata.Entity) {
		if oi.forest.EffectivelyTrashed(e.ID) {
			return
		}
		if matches(oi.folded[e.ID], e.Kind, folded) {
			hits = append(hits, e.Clone())
		}
	})
	ix.mu.RUnlock()

	metadata.SortEntities(hits, metadata.OrderNone)

	ix.metrics.RecordSearch(string(ModeIndex), len(hits), time.Since(start))
	return hits, nil
}

// owner returns the loaded index for ownerID, loading it if needed.
func (ix *Index) owner(ctx context.Context, ownerID string) (*ownerIndex, error) {
	ix.mu.RLock()
	oi, ok := ix.owners[ownerID]
	ix.mu.RUnlock()
	if ok {
		return oi, nil
	}

	v, err, _ := ix.loads.Do(ownerID, func() (any, error) {
		ix.mu.RLock()
		before := ix.epoch[ownerID]
		ix.mu.RUnlock()

		all, err := ix.store.Query(ctx, metadata.Query{OwnerID: ownerID})
		if err != nil {
			return nil, metadata.NewUpstreamError("load search index", err)
		}

		oi := &ownerIndex{
			forest: hierarchy.NewForest(all, ix.maxDepth),
			folded: make(map[string]string, len(all)),
		}
		for _, e := range all {
			oi.folded[e.ID] = fold(e.Name)
		}

		ix.mu.Lock()
		defer ix.mu.Unlock()
		if ix.epoch[ownerID] != before {
			logger.Debug("Search index for %s changed during load, not caching", ownerID)
			return oi, nil
		}
		ix.owners[ownerID] = oi
		ix.metrics.SetIndexedOwners(len(ix.owners))
		logger.Debug("Search index loaded for %s (%d entities)", ownerID, len(all))
		return oi, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ownerIndex), nil
}

// Put records the current state of e.
func (ix *Index) Put(e *metadata.Entity) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.epoch[e.OwnerID]++
	oi, ok := ix.owners[e.OwnerID]
	if !ok {
		return
	}
	rec := e.Clone()
	oi.forest.Put(rec)
	oi.folded[rec.ID] = fold(rec.Name)
}

// Remove forgets e.
func (ix *Index) Remove(e *metadata.Entity) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.epoch[e.OwnerID]++
	oi, ok := ix.owners[e.OwnerID]
	if !ok {
		return
	}
	oi.forest.Remove(e.ID)
	delete(oi.folded, e.ID)
}

// Invalidate drops the owner's index; the next query reloads it.
func (ix *Index) Invalidate(ownerID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.epoch[ownerID]++
	delete(ix.owners, ownerID)
	ix.metrics.SetIndexedOwners(len(ix.owners))
}

// Loaded reports whether ownerID is currently cached.
func (ix *Index) Loaded(ownerID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.owners[ownerID]
	return ok
}

// EntityTrashed implements cascade.Listener.
func (ix *Index) EntityTrashed(e *metadata.Entity) {
	ix.Put(e)
}

// EntityDeleted implements cascade.Listener.
func (ix *Index) EntityDeleted(e *metadata.Entity) {
	ix.Remove(e)
}
