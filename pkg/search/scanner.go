package search

import (
	"context"
	"time"

	"github.com/marmos91/dittodrive/pkg/hierarchy"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metrics"
)

// Scanner searches by reading every record of the owner on each query.
type Scanner struct {
	store    metadata.DocumentStore
	maxDepth int
	metrics  metrics.DriveMetrics
}

// NewScanner creates a Scanner. m may be nil.
func NewScanner(store metadata.DocumentStore, maxDepth int, m metrics.DriveMetrics) *Scanner {
	if m == nil {
		m = metrics.NewNoopDriveMetrics()
	}
	return &Scanner{store: store, maxDepth: maxDepth, metrics: m}
}

func (s *Scanner) Search(ctx context.Context, ownerID, term string) ([]*metadata.Entity, error) {
	if ownerID == "" {
		return nil, metadata.NewInvalidArgumentError("owner id is required")
	}
	start := time.Now()

	all, err := s.store.Query(ctx, metadata.Query{OwnerID: ownerID})
	if err != nil {
		return nil, metadata.NewUpstreamError("search", err)
	}

	forest := hierarchy.NewForest(all, s.maxDepth)
	folded := fold(term)

	hits := make([]*metadata.Entity, 0)
	for _, e := range all {
		if forest.EffectivelyTrashed(e.ID) {
			continue
		}
		if matches(fold(e.Name), e.Kind, folded) {
			hits = append(hits, e)
		}
	}

	s.metrics.RecordSearch(string(ModeScan), len(hits), time.Since(start))
	return hits, nil
}
