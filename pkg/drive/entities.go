package drive

import (
	"context"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// CreateFolder creates a folder under parentID ("" for the root).
//
// The parent must exist, belong to ownerID, be a folder and not be in trash.
func (s *Service) CreateFolder(ctx context.Context, name, ownerID, parentID string) (_ *metadata.Entity, err error) {
	defer func(start time.Time) { s.track("CreateFolder", start, err) }(time.Now())

	name = metadata.NormalizeName(name)
	if name == "" {
		return nil, metadata.NewInvalidArgumentError("folder name is required")
	}
	if ownerID == "" {
		return nil, metadata.NewInvalidArgumentError("owner id is required")
	}
	if err := s.checkParent(ctx, parentID, ownerID); err != nil {
		return nil, err
	}

	now, err := s.now(ctx)
	if err != nil {
		return nil, err
	}

	folder := &metadata.Entity{
		Name:      name,
		Kind:      metadata.KindFolder,
		OwnerID:   ownerID,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.store.Insert(ctx, folder)
	if err != nil {
		return nil, metadata.NewUpstreamError("insert folder", err)
	}
	folder.ID = id

	s.indexPut(folder)
	logger.Debug("Created folder %s (%q) for %s under %q", id, name, ownerID, parentID)
	return folder, nil
}

// Rename changes the name of a file or folder.
//
// The new name is trimmed; an empty result is rejected. Renaming to the
// current name succeeds without writing.
func (s *Service) Rename(ctx context.Context, id, newName, ownerID string) (_ *metadata.Entity, err error) {
	defer func(start time.Time) { s.track("Rename", start, err) }(time.Now())
	return s.rename(ctx, id, newName, ownerID, false)
}

// RenameFolder is Rename restricted to folders.
func (s *Service) RenameFolder(ctx context.Context, id, newName, ownerID string) (_ *metadata.Entity, err error) {
	defer func(start time.Time) { s.track("RenameFolder", start, err) }(time.Now())
	return s.rename(ctx, id, newName, ownerID, true)
}

func (s *Service) rename(ctx context.Context, id, newName, ownerID string, foldersOnly bool) (*metadata.Entity, error) {
	newName = metadata.NormalizeName(newName)
	if newName == "" {
		return nil, metadata.NewInvalidArgumentError("name is required")
	}

	e, err := s.fetchOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if foldersOnly && !e.IsFolder() {
		return nil, metadata.NewInvalidArgumentError("%s is not a folder", id)
	}
	if e.Name == newName {
		return e, nil
	}

	now, err := s.now(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.update(ctx, e, metadata.Patch{Name: &newName, UpdatedAt: now}); err != nil {
		return nil, err
	}
	return e, nil
}

// ToggleStarred flips the starred flag and returns the new state.
func (s *Service) ToggleStarred(ctx context.Context, id, ownerID string) (_ *metadata.Entity, err error) {
	defer func(start time.Time) { s.track("ToggleStarred", start, err) }(time.Now())

	e, err := s.fetchOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	now, err := s.now(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.update(ctx, e, metadata.Patch{Starred: metadata.Bool(!e.Starred), UpdatedAt: now}); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns an entity owned by ownerID.
func (s *Service) Get(ctx context.Context, id, ownerID string) (_ *metadata.Entity, err error) {
	defer func(start time.Time) { s.track("Get", start, err) }(time.Now())
	return s.fetchOwned(ctx, id, ownerID)
}

// ContentURL returns a fresh retrieval URL for a file's bytes.
//
// Stored URLs may expire (presigned S3 links); this resolves a new one.
func (s *Service) ContentURL(ctx context.Context, id, ownerID string) (_ string, err error) {
	defer func(start time.Time) { s.track("ContentURL", start, err) }(time.Now())

	e, err := s.fetchOwned(ctx, id, ownerID)
	if err != nil {
		return "", err
	}
	if e.IsFolder() {
		return "", metadata.NewInvalidArgumentError("%s is a folder", id)
	}

	url, err := s.blobs.ResolveURL(ctx, e.ContentRef)
	if err != nil {
		return "", metadata.NewUpstreamError("resolve content of "+id, err)
	}
	return url, nil
}
