package drive

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// MoveToTrash soft-deletes an entity.
//
// For a folder every descendant is trashed as well, breadth first. The folder
// itself is trashed before its descendants, so a partially failed cascade
// still hides the whole subtree from listings; the returned entity is valid
// alongside a PartialFailure error. Trashing an entity already in trash
// returns it unchanged.
func (s *Service) MoveToTrash(ctx context.Context, id, ownerID string) (_ *metadata.Entity, err error) {
	defer func(start time.Time) { s.track("MoveToTrash", start, err) }(time.Now())

	e, err := s.fetchOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if e.InTrash {
		return e, nil
	}

	now, err := s.now(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.update(ctx, e, metadata.Patch{
		InTrash:   metadata.Bool(true),
		DeletedAt: metadata.Time(now),
		UpdatedAt: now,
	}); err != nil {
		return nil, err
	}

	if !e.IsFolder() {
		return e, nil
	}

	if _, err := s.engine.Trash(ctx, e.ID, ownerID, now); err != nil {
		return e, err
	}
	return e, nil
}

// RestoreFromTrash clears the trash flag of an entity and of every trashed
// folder above it, so the restored entity is reachable again.
//
// Descendants trashed by a cascade stay in trash, and so do siblings of the
// restored chain; they are restored one by one. Restoring an entity that is
// neither in trash nor under a trashed folder returns it unchanged.
func (s *Service) RestoreFromTrash(ctx context.Context, id, ownerID string) (_ *metadata.Entity, err error) {
	defer func(start time.Time) { s.track("RestoreFromTrash", start, err) }(time.Now())

	e, err := s.fetchOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	ancestors, err := s.resolver.TrashedAncestors(ctx, e)
	if err != nil {
		return nil, err
	}
	if !e.InTrash && len(ancestors) == 0 {
		return e, nil
	}

	now, err := s.now(ctx)
	if err != nil {
		return nil, err
	}

	chain := ancestors
	if e.InTrash {
		chain = append([]*metadata.Entity{e}, ancestors...)
	}
	for _, target := range chain {
		if err := s.update(ctx, target, metadata.Patch{
			InTrash:        metadata.Bool(false),
			ClearDeletedAt: true,
			UpdatedAt:      now,
		}); err != nil {
			return nil, err
		}
	}

	if len(ancestors) > 0 {
		logger.Debug("Restored %s together with %d trashed ancestor(s)", e.ID, len(ancestors))
	}
	return e, nil
}

// PermanentlyDelete removes an entity and, for a folder, everything beneath it.
//
// File bytes are removed best effort. The folder record itself is deleted
// only when the whole subtree is gone; after a PartialFailure it remains, so
// the operation can be retried.
func (s *Service) PermanentlyDelete(ctx context.Context, id, ownerID string) (err error) {
	defer func(start time.Time) { s.track("PermanentlyDelete", start, err) }(time.Now())

	e, err := s.fetchOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if e.IsFolder() {
		if _, err := s.engine.Purge(ctx, e.ID, ownerID); err != nil {
			return err
		}
	} else {
		s.engine.RemoveBlob(ctx, e)
	}

	if err := s.store.Delete(ctx, e.ID); err != nil {
		return metadata.NewUpstreamError("delete "+e.ID, err)
	}
	s.indexRemove(e)
	return nil
}

// EmptyTrash permanently deletes everything in the owner's trash and returns
// the number of trash roots removed.
//
// Only trash roots (entities whose parent is not itself in trash) are
// processed; their purge takes the rest. Every root is attempted and the
// failures are reported together as a PartialFailure.
func (s *Service) EmptyTrash(ctx context.Context, ownerID string) (_ int, err error) {
	defer func(start time.Time) { s.track("EmptyTrash", start, err) }(time.Now())

	if ownerID == "" {
		return 0, metadata.NewInvalidArgumentError("owner id is required")
	}

	trashed, err := s.store.Query(ctx, metadata.Query{
		OwnerID: ownerID,
		InTrash: metadata.Bool(true),
		OrderBy: metadata.OrderDeletedDesc,
	})
	if err != nil {
		return 0, metadata.NewUpstreamError("query trash", err)
	}

	inTrash := make(map[string]struct{}, len(trashed))
	for _, e := range trashed {
		inTrash[e.ID] = struct{}{}
	}

	var (
		removed  int
		failures []metadata.Failure
	)
	for _, e := range trashed {
		if _, nested := inTrash[e.ParentID]; nested {
			continue
		}

		err := s.PermanentlyDelete(ctx, e.ID, ownerID)
		switch {
		case err == nil, metadata.IsNotFound(err):
			removed++
		default:
			var pfe *metadata.PartialFailureError
			if errors.As(err, &pfe) {
				failures = append(failures, pfe.Failures...)
			} else {
				failures = append(failures, metadata.Failure{ID: e.ID, Op: "delete", Err: err})
			}
		}
	}

	if len(failures) > 0 {
		logger.Warn("Empty trash for %s: %d root(s) removed, %d failure(s)", ownerID, removed, len(failures))
		return removed, &metadata.PartialFailureError{Failures: failures}
	}

	logger.Info("Emptied trash for %s: %d root(s) removed", ownerID, removed)
	return removed, nil
}
