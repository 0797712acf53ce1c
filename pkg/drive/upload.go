package drive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// DefaultMimeType is recorded for uploads that do not declare a type.
const DefaultMimeType = "application/octet-stream"

// UploadRequest describes a file upload.
type UploadRequest struct {
	Name     string
	MimeType string

	// Size is the announced byte count; negative when unknown.
	Size int64
	Body io.Reader

	OwnerID  string
	ParentID string
}

// UploadFile stores the bytes of req.Body and then records the file.
//
// onProgress receives percentages in [0, 100], non-decreasing, with 100
// reported once the bytes are stored. If recording fails after the bytes were
// stored, the blob is left behind for the orphan collector.
func (s *Service) UploadFile(ctx context.Context, req UploadRequest, onProgress content.ProgressFunc) (_ *metadata.Entity, err error) {
	defer func(start time.Time) { s.track("UploadFile", start, err) }(time.Now())

	name := metadata.NormalizeName(req.Name)
	if name == "" {
		return nil, metadata.NewInvalidArgumentError("file name is required")
	}
	if req.OwnerID == "" {
		return nil, metadata.NewInvalidArgumentError("owner id is required")
	}
	if req.Body == nil {
		return nil, metadata.NewInvalidArgumentError("file body is required")
	}
	if err := s.checkParent(ctx, req.ParentID, req.OwnerID); err != nil {
		return nil, err
	}

	now, err := s.now(ctx)
	if err != nil {
		return nil, err
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	file := &metadata.Entity{
		Name:       name,
		Kind:       metadata.KindFile,
		OwnerID:    req.OwnerID,
		ParentID:   req.ParentID,
		CreatedAt:  now,
		UpdatedAt:  now,
		MimeType:   mimeType,
		ContentRef: blobPath(req.OwnerID, name, now),
	}
	if err := metadata.ValidateEntity(file); err != nil {
		return nil, err
	}

	putStart := time.Now()
	obj, err := s.blobs.Put(ctx, file.ContentRef, req.Body, req.Size, onProgress)
	s.metrics.RecordUpload(obj.Size, time.Since(putStart), err)
	if err != nil {
		return nil, metadata.NewUpstreamError("store content of "+name, err)
	}

	url := obj.URL
	if url == "" {
		url, err = s.blobs.ResolveURL(ctx, obj.Ref)
		if err != nil {
			return nil, metadata.NewUpstreamError("resolve content of "+name, err)
		}
	}

	file.SizeBytes = obj.Size
	file.ContentRef = obj.Ref
	file.ContentURL = url

	id, err := s.store.Insert(ctx, file)
	if err != nil {
		logger.Warn("Upload of %q stored blob %s but the record failed: %v", name, obj.Ref, err)
		return nil, metadata.NewUpstreamError("insert file", err)
	}
	file.ID = id

	s.indexPut(file)
	logger.Debug("Uploaded file %s (%q, %d bytes) for %s", id, name, obj.Size, req.OwnerID)
	return file, nil
}

// blobPath builds the storage path files/<owner>/<millis>_<uuid>_<name>.
// The uuid keeps same-name uploads within one millisecond apart.
func blobPath(ownerID, name string, now time.Time) string {
	return fmt.Sprintf("files/%s/%d_%s_%s", ownerID, now.UnixMilli(), uuid.NewString(), strings.ReplaceAll(name, "/", "_"))
}
