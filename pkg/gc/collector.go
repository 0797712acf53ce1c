// Package gc reclaims blobs that no entity record references.
//
// Orphaned blobs appear when:
//   - An upload stored its bytes but recording the file failed
//   - A blob removal failed during a permanent delete (removal is best effort)
//   - The process stopped between the blob write and the record insert
//
// The collector needs a DocumentStore that implements
// metadata.ContentRefLister and a BlobStore that implements content.Lister.
package gc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval    = 24 * time.Hour
	DefaultMinAge      = time.Hour
	DefaultConcurrency = 4
	DefaultRunTimeout  = 10 * time.Minute
)

// Collector performs periodic orphan collection.
//
// Thread Safety: Safe for concurrent use. Runs are serialized.
type Collector struct {
	refs    metadata.ContentRefLister
	blobs   content.BlobStore
	lister  content.Lister
	config  Config
	metrics metrics.GCMetrics
	now     func() time.Time

	runMu sync.Mutex

	statsMu sync.RWMutex
	last    *Stats

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Config contains configuration for the orphan collector.
type Config struct {
	// Enabled controls whether periodic collection runs (default: false)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Interval is how often to run collection (default: 24h)
	Interval time.Duration `mapstructure:"interval" validate:"gte=0" yaml:"interval"`

	// MinAge is the grace period before an unreferenced blob counts as an
	// orphan. It covers uploads whose record has not been written yet
	// (default: 1h).
	MinAge time.Duration `mapstructure:"min_age" validate:"gte=0" yaml:"min_age"`

	// Concurrency bounds parallel removals (default: 4)
	Concurrency int `mapstructure:"concurrency" validate:"gte=0" yaml:"concurrency"`

	// DryRun logs what would be removed without removing it (default: false)
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// NewCollector creates a collector. It is initialized but not started.
//
// Returns an error when the stores lack the listing capabilities the
// collector relies on. m may be nil.
func NewCollector(store metadata.DocumentStore, blobs content.BlobStore, config Config, m metrics.GCMetrics) (*Collector, error) {
	refs, ok := store.(metadata.ContentRefLister)
	if !ok {
		return nil, fmt.Errorf("document store does not implement ContentRefLister")
	}
	lister, ok := blobs.(content.Lister)
	if !ok {
		return nil, fmt.Errorf("blob store does not implement Lister")
	}

	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	if config.MinAge == 0 {
		config.MinAge = DefaultMinAge
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if m == nil {
		m = metrics.NewNoopGCMetrics()
	}

	return &Collector{
		refs:    refs,
		blobs:   blobs,
		lister:  lister,
		config:  config,
		metrics: m,
		now:     time.Now,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins periodic collection. Subsequent calls are no-ops.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Orphan collection disabled")
		return
	}

	c.startOnce.Do(func() {
		logger.Info("Starting orphan collector: interval=%s min_age=%s concurrency=%d dry_run=%v",
			c.config.Interval, c.config.MinAge, c.config.Concurrency, c.config.DryRun)
		c.started = true
		go c.worker()
	})
}

// Stop stops the collector and waits for an in-progress run to finish or for
// ctx to expire. Safe to call multiple times.
func (c *Collector) Stop(ctx context.Context) error {
	if !c.started {
		return nil
	}

	c.stopOnce.Do(func() {
		logger.Info("Stopping orphan collector...")
		close(c.stopCh)
	})

	select {
	case <-c.doneCh:
		logger.Info("Orphan collector stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Orphan collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow performs a collection immediately and blocks until it completes.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Running orphan collection (manual trigger)...")
	return c.collect(ctx)
}

// LastStats returns the statistics of the most recent run, nil before the
// first one.
func (c *Collector) LastStats() *Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	if c.last == nil {
		return nil
	}
	s := *c.last
	return &s
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), DefaultRunTimeout)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Orphan collection failed: %v", err)
			} else {
				logger.Info("Orphan collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect performs a single run:
//  1. List every blob in the blob store
//  2. Read every ref held by a record
//  3. Orphans = blobs - refs, older than MinAge
//  4. Remove orphans through a bounded pool
//
// Blobs are listed before refs are read, so a blob whose record is inserted
// during the run is either unlisted or referenced. MinAge covers records
// that land after the refs were read.
func (c *Collector) collect(ctx context.Context) (stats *Stats, err error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	stats = &Stats{StartTime: c.now(), DryRun: c.config.DryRun}
	defer func() {
		stats.EndTime = c.now()
		c.metrics.RecordRun(stats.Scanned, stats.Orphaned, stats.Removed, stats.BytesFreed, stats.Duration(), err)

		c.statsMu.Lock()
		c.last = stats
		c.statsMu.Unlock()
	}()

	blobs, err := c.lister.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list blobs: %w", err)
	}
	stats.Scanned = len(blobs)

	referenced, err := c.refs.ContentRefs(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read referenced blobs: %w", err)
	}
	stats.Referenced = len(referenced)

	cutoff := stats.StartTime.Add(-c.config.MinAge)
	var orphans []content.ObjectInfo
	for _, b := range blobs {
		if _, ok := referenced[b.Ref]; ok {
			continue
		}
		if b.ModTime.After(cutoff) {
			stats.Young++
			continue
		}
		orphans = append(orphans, b)
	}
	stats.Orphaned = len(orphans)

	if len(orphans) == 0 {
		logger.Debug("GC: No orphaned blobs (scanned=%d, young=%d)", stats.Scanned, stats.Young)
		return stats, nil
	}

	if c.config.DryRun {
		logger.Info("GC: DRY RUN - Would remove %d blob(s):", len(orphans))
		for i, o := range orphans {
			if i == 10 {
				logger.Info("  ... and %d more", len(orphans)-10)
				break
			}
			logger.Info("  - %s (%d bytes)", o.Ref, o.Size)
		}
		return stats, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Concurrency)

	for _, o := range orphans {
		g.Go(func() error {
			if err := c.blobs.Remove(gctx, o.Ref); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Debug("GC: Failed to remove %s: %v", o.Ref, err)
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			stats.Removed++
			stats.BytesFreed += o.Size
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	logger.Info("GC: Removed %d orphaned blob(s), %d failed, %d bytes freed",
		stats.Removed, stats.Failed, stats.BytesFreed)
	return stats, nil
}

// Stats contains statistics from a collection run.
type Stats struct {
	StartTime  time.Time
	EndTime    time.Time
	DryRun     bool
	Scanned    int   // Blobs listed from the blob store
	Referenced int   // Distinct refs held by records
	Young      int   // Unreferenced blobs inside the grace period
	Orphaned   int   // Blobs eligible for removal
	Removed    int   // Orphans removed
	Failed     int   // Orphans whose removal failed
	BytesFreed int64 // Total size of removed orphans
}

// Duration returns the total run duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the run.
func (s *Stats) Summary() string {
	return fmt.Sprintf("scanned=%d referenced=%d young=%d orphaned=%d removed=%d failed=%d freed=%dB duration=%s",
		s.Scanned, s.Referenced, s.Young, s.Orphaned, s.Removed, s.Failed, s.BytesFreed, s.Duration())
}
