// Package cascade propagates trash and purge operations from a folder to
// every entity beneath it.
//
// A run walks the subtree breadth first. Each level is enumerated and then
// dispatched through a bounded pool; every operation of a level settles
// before the next level starts, and one failure never cancels its siblings.
// Failures are gathered and reported together as a
// *metadata.PartialFailureError.
package cascade

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/ratelimiter"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/hierarchy"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metrics"
)

// DefaultConcurrency bounds in-flight operations when none is configured.
const DefaultConcurrency = 8

// ErrNotFolder is returned when a cascade targets a file.
var ErrNotFolder = errors.New("cascade target is not a folder")

// Listener is notified of every entity a run changes.
//
// Calls come from pool goroutines and may be concurrent.
type Listener interface {
	EntityTrashed(e *metadata.Entity)
	EntityDeleted(e *metadata.Entity)
}

// Config configures an Engine.
type Config struct {
	// Concurrency bounds the operations in flight within one run.
	Concurrency int `mapstructure:"concurrency" validate:"gte=0" yaml:"concurrency"`

	// RateLimit throttles dispatches across all runs of the engine.
	RateLimit ratelimiter.Config `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// Engine executes cascades against a document store and a blob store.
type Engine struct {
	store       metadata.DocumentStore
	blobs       content.BlobStore
	resolver    *hierarchy.Resolver
	limiter     *ratelimiter.RateLimiter
	concurrency int
	metrics     metrics.DriveMetrics

	mu        sync.RWMutex
	listeners []Listener
}

// NewEngine creates an Engine. m may be nil.
func NewEngine(store metadata.DocumentStore, blobs content.BlobStore, resolver *hierarchy.Resolver, cfg Config, m metrics.DriveMetrics) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if m == nil {
		m = metrics.NewNoopDriveMetrics()
	}

	return &Engine{
		store:       store,
		blobs:       blobs,
		resolver:    resolver,
		limiter:     ratelimiter.New(cfg.RateLimit),
		concurrency: cfg.Concurrency,
		metrics:     m,
	}
}

// AddListener registers l for every subsequent run.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

func (e *Engine) notify(fn func(Listener)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, l := range e.listeners {
		fn(l)
	}
}

// Trash marks every descendant of folderID as trashed at deletedAt.
//
// Descendants already in trash keep their original deletion time. The folder
// itself is not modified.
func (e *Engine) Trash(ctx context.Context, folderID, ownerID string, deletedAt time.Time) (*Result, error) {
	return e.run(ctx, ModeTrash, folderID, ownerID, deletedAt)
}

// Purge permanently removes every descendant of folderID.
//
// Blob removal is best effort. A folder record is deleted only after
// everything beneath it is gone; folders above a failure are kept and listed
// in Result.Retained. The target folder itself is never deleted.
func (e *Engine) Purge(ctx context.Context, folderID, ownerID string) (*Result, error) {
	return e.run(ctx, ModePurge, folderID, ownerID, time.Time{})
}

// run validates the target and executes the cascade.
//
// The returned error is nil on full success, a *metadata.PartialFailureError
// when some descendants failed, or a precondition error (NotFound,
// Unauthorized, ErrNotFolder) when nothing was attempted.
func (e *Engine) run(ctx context.Context, mode Mode, folderID, ownerID string, deletedAt time.Time) (*Result, error) {
	root, err := e.store.Get(ctx, folderID)
	if err != nil {
		return nil, metadata.NewUpstreamError("get "+folderID, err)
	}
	if root.OwnerID != ownerID {
		return nil, metadata.NewUnauthorizedError(folderID)
	}
	if !root.IsFolder() {
		return nil, &metadata.StoreError{
			Code:    metadata.ErrInvalidArgument,
			Message: ErrNotFolder.Error(),
			ID:      folderID,
			Err:     ErrNotFolder,
		}
	}

	r := &run{
		engine:    e,
		mode:      mode,
		ownerID:   ownerID,
		deletedAt: deletedAt,
		parentOf:  make(map[string]string),
		seen:      map[string]struct{}{folderID: {}},
		blocked:   make(map[string]struct{}),
		result: &Result{
			RunID:  uuid.NewString(),
			RootID: folderID,
			Mode:   mode,
			State:  StatePending,
		},
	}

	start := time.Now()
	r.execute(ctx)
	r.result.Duration = time.Since(start)

	e.metrics.RecordCascade(mode.String(), r.result.State.String(), r.result.Visited, len(r.result.Failures), r.result.Duration)

	if r.result.State == StatePartiallyFailed {
		logger.Warn("Cascade %s %s on %s finished with %d failure(s) (visited=%d)",
			r.result.RunID, mode, folderID, len(r.result.Failures), r.result.Visited)
		return r.result, r.result.Err()
	}

	logger.Debug("Cascade %s %s on %s completed (visited=%d, levels=%d, %v)",
		r.result.RunID, mode, folderID, r.result.Visited, r.result.Levels, r.result.Duration)
	return r.result, nil
}

// removeBlob deletes the bytes behind a file. Failures are logged and
// counted, never returned: the record is removed regardless.
func (e *Engine) removeBlob(ctx context.Context, f *metadata.Entity) {
	if f.ContentRef == "" || e.blobs == nil {
		return
	}
	if err := e.blobs.Remove(ctx, f.ContentRef); err != nil {
		logger.Warn("Failed to remove blob %s of %s: %v", f.ContentRef, f.ID, err)
		e.metrics.RecordBlobRemoveFailure()
	}
}

// RemoveBlob is the best-effort blob removal used for single files.
func (e *Engine) RemoveBlob(ctx context.Context, f *metadata.Entity) {
	e.removeBlob(ctx, f)
}
