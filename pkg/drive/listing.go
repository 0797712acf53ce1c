package drive

import (
	"context"
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
)

// List returns the non-trashed children of parentID ("" for the root),
// folders first and then by name.
//
// A parent that is missing, foreign or in trash yields an empty listing
// rather than an error.
func (s *Service) List(ctx context.Context, ownerID, parentID string) (_ []*metadata.Entity, err error) {
	defer func(start time.Time) { s.track("List", start, err) }(time.Now())

	if ownerID == "" {
		return nil, metadata.NewInvalidArgumentError("owner id is required")
	}

	if parentID != "" {
		parent, err := s.store.Get(ctx, parentID)
		switch {
		case metadata.IsNotFound(err):
			return []*metadata.Entity{}, nil
		case err != nil:
			return nil, metadata.NewUpstreamError("get "+parentID, err)
		case parent.OwnerID != ownerID:
			return []*metadata.Entity{}, nil
		}

		trashed, err := s.resolver.EffectivelyTrashed(ctx, parent)
		if err != nil {
			return nil, err
		}
		if trashed {
			return []*metadata.Entity{}, nil
		}
	}

	children, err := s.store.Query(ctx, metadata.Query{
		OwnerID:  ownerID,
		ParentID: metadata.String(parentID),
		InTrash:  metadata.Bool(false),
		OrderBy:  metadata.OrderKindName,
	})
	if err != nil {
		return nil, metadata.NewUpstreamError("list children", err)
	}
	return children, nil
}

// ListStarred returns the owner's starred entities that are visible, most
// recently updated first.
func (s *Service) ListStarred(ctx context.Context, ownerID string) (_ []*metadata.Entity, err error) {
	defer func(start time.Time) { s.track("ListStarred", start, err) }(time.Now())

	if ownerID == "" {
		return nil, metadata.NewInvalidArgumentError("owner id is required")
	}

	starred, err := s.store.Query(ctx, metadata.Query{
		OwnerID: ownerID,
		Starred: metadata.Bool(true),
		InTrash: metadata.Bool(false),
		OrderBy: metadata.OrderUpdatedDesc,
	})
	if err != nil {
		return nil, metadata.NewUpstreamError("list starred", err)
	}
	return s.resolver.FilterVisible(ctx, starred)
}

// ListTrash returns every trashed entity of the owner, cascade-trashed
// descendants included, most recently deleted first.
func (s *Service) ListTrash(ctx context.Context, ownerID string) (_ []*metadata.Entity, err error) {
	defer func(start time.Time) { s.track("ListTrash", start, err) }(time.Now())

	if ownerID == "" {
		return nil, metadata.NewInvalidArgumentError("owner id is required")
	}

	trashed, err := s.store.Query(ctx, metadata.Query{
		OwnerID: ownerID,
		InTrash: metadata.Bool(true),
		OrderBy: metadata.OrderDeletedDesc,
	})
	if err != nil {
		return nil, metadata.NewUpstreamError("list trash", err)
	}
	return trashed, nil
}

// Search returns the owner's visible entities whose name or kind contains
// term, ignoring case. An empty term matches nothing.
func (s *Service) Search(ctx context.Context, ownerID, term string) (_ []*metadata.Entity, err error) {
	defer func(start time.Time) { s.track("Search", start, err) }(time.Now())

	if ownerID == "" {
		return nil, metadata.NewInvalidArgumentError("owner id is required")
	}
	if metadata.NormalizeName(term) == "" {
		return []*metadata.Entity{}, nil
	}

	results, err := s.searcher.Search(ctx, ownerID, term)
	if err != nil {
		return nil, metadata.NewUpstreamError("search", err)
	}
	return results, nil
}

// Path returns the breadcrumb trail from the root to folderID, inclusive.
// It never fails: unresolvable ancestry truncates the trail.
func (s *Service) Path(ctx context.Context, folderID, ownerID string) []metadata.Crumb {
	return s.resolver.ResolvePath(ctx, folderID, ownerID)
}

// Subtree returns the direct children of folderID, trashed ones included.
func (s *Service) Subtree(ctx context.Context, folderID, ownerID string) ([]*metadata.Entity, error) {
	return s.resolver.ResolveSubtree(ctx, folderID, ownerID)
}
