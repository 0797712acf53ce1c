package gc

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	contentmemory "github.com/marmos91/dittodrive/pkg/content/memory"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metadata/memory"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.MemoryDocumentStore
	blobs *contentmemory.MemoryBlobStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blobs, err := contentmemory.NewMemoryBlobStore(context.Background(), contentmemory.MemoryBlobStoreConfig{})
	require.NoError(t, err)
	return &fixture{store: memory.NewMemoryDocumentStoreWithDefaults(), blobs: blobs}
}

func (f *fixture) blob(t *testing.T, ref string, size int, age time.Duration) {
	t.Helper()
	_, err := f.blobs.Put(context.Background(), ref, bytes.NewReader(make([]byte, size)), int64(size), nil)
	require.NoError(t, err)
	f.blobs.SetModTime(ref, now.Add(-age))
}

func (f *fixture) record(t *testing.T, ref string) {
	t.Helper()
	_, err := f.store.Insert(context.Background(), &metadata.Entity{
		Name: ref, Kind: metadata.KindFile, OwnerID: "u1", ContentRef: ref,
	})
	require.NoError(t, err)
}

func (f *fixture) collector(t *testing.T, cfg Config, m metrics.GCMetrics) *Collector {
	t.Helper()
	c, err := NewCollector(f.store, f.blobs, cfg, m)
	require.NoError(t, err)
	c.now = func() time.Time { return now }
	return c
}

type recordingMetrics struct {
	runs    int
	removed int
	freed   int64
	err     error
}

func (m *recordingMetrics) RecordRun(scanned, orphans, removed int, bytesFreed int64, duration time.Duration, err error) {
	m.runs++
	m.removed += removed
	m.freed += bytesFreed
	m.err = err
}

func TestCollectRemovesOldOrphans(t *testing.T) {
	f := newFixture(t)
	f.blob(t, "files/u1/1_kept.txt", 10, 48*time.Hour)
	f.record(t, "files/u1/1_kept.txt")
	f.blob(t, "files/u1/2_orphan.txt", 20, 48*time.Hour)
	f.blob(t, "files/u1/3_fresh.txt", 30, time.Minute)

	m := &recordingMetrics{}
	c := f.collector(t, Config{}, m)

	stats, err := c.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 1, stats.Referenced)
	assert.Equal(t, 1, stats.Young)
	assert.Equal(t, 1, stats.Orphaned)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, int64(20), stats.BytesFreed)
	assert.Contains(t, stats.Summary(), "removed=1")

	_, ok := f.blobs.Bytes("files/u1/2_orphan.txt")
	assert.False(t, ok)
	_, ok = f.blobs.Bytes("files/u1/1_kept.txt")
	assert.True(t, ok)
	_, ok = f.blobs.Bytes("files/u1/3_fresh.txt")
	assert.True(t, ok, "inside the grace period")

	assert.Equal(t, 1, m.runs)
	assert.Equal(t, 1, m.removed)
	assert.Equal(t, int64(20), m.freed)
	assert.NoError(t, m.err)

	last := c.LastStats()
	require.NotNil(t, last)
	assert.Equal(t, stats.Removed, last.Removed)
}

func TestCollectDryRun(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		f.blob(t, "files/u1/orphan-"+string(rune('a'+i)), 1, 2*time.Hour)
	}

	c := f.collector(t, Config{DryRun: true}, nil)
	stats, err := c.RunNow(context.Background())
	require.NoError(t, err)

	assert.True(t, stats.DryRun)
	assert.Equal(t, 12, stats.Orphaned)
	assert.Zero(t, stats.Removed)

	objects, err := f.blobs.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, objects, 12)
}

func TestCollectCountsRemoveFailures(t *testing.T) {
	f := newFixture(t)
	f.blob(t, "a", 1, 2*time.Hour)
	f.blob(t, "b", 1, 2*time.Hour)
	f.blobs.FailRemove("a", errors.New("access denied"))

	c := f.collector(t, Config{Concurrency: 1}, nil)
	stats, err := c.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Orphaned)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 1, stats.Failed)
}

func TestCollectNothingToDo(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.collector(t, Config{}, nil).LastStats())

	stats, err := f.collector(t, Config{}, nil).RunNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Scanned)
	assert.Zero(t, stats.Orphaned)
}

func TestCollectCancelled(t *testing.T) {
	f := newFixture(t)
	f.blob(t, "a", 1, 2*time.Hour)

	m := &recordingMetrics{}
	c := f.collector(t, Config{}, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.RunNow(ctx)
	require.Error(t, err)
	assert.Error(t, m.err)

	_, ok := f.blobs.Bytes("a")
	assert.True(t, ok)
}

// plainStore hides the optional ContentRefLister capability.
type plainStore struct {
	metadata.DocumentStore
}

func TestNewCollectorRequiresListing(t *testing.T) {
	f := newFixture(t)

	_, err := NewCollector(plainStore{f.store}, f.blobs, Config{}, nil)
	require.Error(t, err)

	c, err := NewCollector(f.store, f.blobs, Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, c.config.Interval)
	assert.Equal(t, DefaultMinAge, c.config.MinAge)
	assert.Equal(t, DefaultConcurrency, c.config.Concurrency)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)

	disabled := f.collector(t, Config{}, nil)
	disabled.Start()
	require.NoError(t, disabled.Stop(context.Background()))

	c := f.collector(t, Config{Enabled: true, Interval: time.Hour}, nil)
	c.Start()
	c.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))
}
