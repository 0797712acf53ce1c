// Package content defines the blob store that holds file bytes.
//
// Metadata records reference blobs through an opaque ref returned by Put.
// The drive engine never interprets refs; it only hands them back to the
// same store for URL resolution and removal.
package content

import (
	"context"
	"io"
	"time"
)

// ProgressFunc receives upload progress as a percentage in [0, 100].
//
// Values passed to a single ProgressFunc never decrease. The callback runs on
// the uploading goroutine and must not block for long.
type ProgressFunc func(percent float64)

// Object describes a stored blob.
type Object struct {
	// Ref is the opaque handle used for later ResolveURL and Remove calls.
	Ref string

	// URL is a retrieval locator for the stored bytes.
	URL string

	// Size is the number of bytes written.
	Size int64
}

// BlobStore stores file contents.
//
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Put stores the bytes read from r under path and returns the object.
	//
	// size is the expected length, used for progress reporting; pass -1 if
	// unknown (progress is then only reported at completion). progress may be
	// nil. Putting to an existing path overwrites it.
	Put(ctx context.Context, path string, r io.Reader, size int64, progress ProgressFunc) (Object, error)

	// ResolveURL returns a retrieval locator for ref.
	//
	// Returns ErrBlobNotFound if ref does not exist.
	ResolveURL(ctx context.Context, ref string) (string, error)

	// Remove deletes the blob identified by ref.
	//
	// Removing a missing blob is not an error.
	Remove(ctx context.Context, ref string) error
}

// ObjectInfo is a listing entry returned by Lister.
type ObjectInfo struct {
	Ref     string
	Size    int64
	ModTime time.Time
}

// Lister is implemented by stores that can enumerate their blobs.
// Required by the orphan collector.
type Lister interface {
	List(ctx context.Context) ([]ObjectInfo, error)
}
