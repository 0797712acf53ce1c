// Package hierarchy walks the parent links of the entity forest.
//
// Parent chains come from an external repository and are never trusted to be
// acyclic: every walk carries a visited set and a depth cap, and truncates
// instead of failing when either trips.
package hierarchy

import (
	"context"
	"slices"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// DefaultMaxDepth caps ancestor walks when no limit is configured.
const DefaultMaxDepth = 256

// Resolver answers ancestry questions against a DocumentStore.
type Resolver struct {
	store    metadata.DocumentStore
	maxDepth int
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// MaxDepth bounds the number of ancestors visited by a single walk.
	// Zero selects DefaultMaxDepth.
	MaxDepth int `mapstructure:"max_depth" validate:"omitempty,gte=1" yaml:"max_depth"`
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store metadata.DocumentStore, cfg ResolverConfig) *Resolver {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Resolver{store: store, maxDepth: cfg.MaxDepth}
}

// MaxDepth returns the configured walk limit.
func (r *Resolver) MaxDepth() int {
	return r.maxDepth
}

// ResolvePath returns the breadcrumb trail from the root down to folderID.
//
// The walk stops silently at a root, a missing entity, an entity owned by
// someone else, a repository error, a revisited id or the depth cap. Whatever
// was collected up to that point is returned, so the result is always usable
// for display. An empty folderID yields an empty path.
func (r *Resolver) ResolvePath(ctx context.Context, folderID, ownerID string) []metadata.Crumb {
	path := []metadata.Crumb{}

	_ = r.walk(ctx, folderID, ownerID, func(e *metadata.Entity) bool {
		path = append(path, metadata.Crumb{ID: e.ID, Name: e.Name})
		return true
	})

	slices.Reverse(path)
	return path
}

// ResolveSubtree returns the direct children of folderID, trashed or not.
//
// It does not recurse; the cascade engine drives the traversal.
func (r *Resolver) ResolveSubtree(ctx context.Context, folderID, ownerID string) ([]*metadata.Entity, error) {
	children, err := r.store.Query(ctx, metadata.Query{
		OwnerID:  ownerID,
		ParentID: metadata.String(folderID),
	})
	if err != nil {
		return nil, metadata.NewUpstreamError("list children of "+folderID, err)
	}
	return children, nil
}

// EffectivelyTrashed reports whether e or one of its ancestors is in trash.
//
// A broken chain (missing parent, foreign owner, cycle) ends the walk and
// counts as not trashed. Repository failures other than NotFound are returned.
func (r *Resolver) EffectivelyTrashed(ctx context.Context, e *metadata.Entity) (bool, error) {
	if e.InTrash {
		return true, nil
	}

	trashed := false
	err := r.walk(ctx, e.ParentID, e.OwnerID, func(ancestor *metadata.Entity) bool {
		if ancestor.InTrash {
			trashed = true
			return false
		}
		return true
	})
	return trashed, err
}

// TrashedAncestors returns the ancestors of e that are in trash, nearest
// first. The walk follows the same rules as EffectivelyTrashed but does not
// stop at the first trashed folder.
func (r *Resolver) TrashedAncestors(ctx context.Context, e *metadata.Entity) ([]*metadata.Entity, error) {
	var trashed []*metadata.Entity
	err := r.walk(ctx, e.ParentID, e.OwnerID, func(ancestor *metadata.Entity) bool {
		if ancestor.InTrash {
			trashed = append(trashed, ancestor)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return trashed, nil
}

// FilterVisible drops entities that are effectively trashed.
//
// Answers are memoized per ancestor for the duration of the call, so a
// listing of siblings costs one walk.
func (r *Resolver) FilterVisible(ctx context.Context, entities []*metadata.Entity) ([]*metadata.Entity, error) {
	memo := make(map[string]bool)
	visible := make([]*metadata.Entity, 0, len(entities))

	for _, e := range entities {
		if e.InTrash {
			continue
		}

		trashed, err := r.ancestorTrashed(ctx, e, memo)
		if err != nil {
			return nil, err
		}
		if !trashed {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

func (r *Resolver) ancestorTrashed(ctx context.Context, e *metadata.Entity, memo map[string]bool) (bool, error) {
	var chain []string
	trashed := false

	err := r.walk(ctx, e.ParentID, e.OwnerID, func(ancestor *metadata.Entity) bool {
		if known, ok := memo[ancestor.ID]; ok {
			trashed = known
			return false
		}
		chain = append(chain, ancestor.ID)
		if ancestor.InTrash {
			trashed = true
			return false
		}
		return true
	})
	if err != nil {
		return false, err
	}

	for _, id := range chain {
		memo[id] = trashed
	}
	return trashed, nil
}

// walk visits id and its ancestors, nearest first, until fn returns false or
// the chain ends. Only repository failures other than NotFound are returned;
// they are also logged so that best-effort callers can ignore them.
func (r *Resolver) walk(ctx context.Context, id, ownerID string, fn func(*metadata.Entity) bool) error {
	visited := make(map[string]struct{})

	for depth := 0; id != ""; depth++ {
		if depth >= r.maxDepth {
			logger.Warn("Ancestor walk truncated at depth %d (owner=%s, at=%s)", r.maxDepth, ownerID, id)
			return nil
		}
		if _, seen := visited[id]; seen {
			logger.Warn("Cycle in parent chain (owner=%s, at=%s)", ownerID, id)
			return nil
		}
		visited[id] = struct{}{}

		e, err := r.store.Get(ctx, id)
		if err != nil {
			if metadata.IsNotFound(err) {
				return nil
			}
			logger.Warn("Ancestor walk stopped at %s: %v", id, err)
			return metadata.NewUpstreamError("get "+id, err)
		}
		if e.OwnerID != ownerID {
			return nil
		}

		if !fn(e) {
			return nil
		}
		id = e.ParentID
	}
	return nil
}
