package metadata_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metadata/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	kind, backend, op string
	failed            bool
}

type recordingMetrics struct {
	mu    sync.Mutex
	calls []call
}

func (r *recordingMetrics) RecordStoreOperation(kind, backend, operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{kind, backend, operation, err != nil})
}

func TestInstrumentNilMetrics(t *testing.T) {
	store := memory.NewMemoryDocumentStoreWithDefaults()
	assert.Same(t, metadata.DocumentStore(store), metadata.Instrument(store, "memory", nil))
}

func TestInstrumentRecordsCalls(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewMemoryDocumentStoreWithDefaults()
	m := &recordingMetrics{}
	store := metadata.Instrument(inner, "memory", m)

	id, err := store.Insert(ctx, &metadata.Entity{
		Name:       "a.txt",
		Kind:       metadata.KindFile,
		OwnerID:    "alice",
		ContentRef: "files/alice/1_a.txt",
	})
	require.NoError(t, err)

	_, err = store.Get(ctx, "missing")
	assert.True(t, metadata.IsNotFound(err))

	require.NoError(t, store.Update(ctx, id, metadata.Patch{Starred: metadata.Bool(true)}))

	got, err := store.Query(ctx, metadata.Query{OwnerID: "alice", Starred: metadata.Bool(true)})
	require.NoError(t, err)
	require.Len(t, got, 1)

	refs, err := store.(metadata.ContentRefLister).ContentRefs(ctx)
	require.NoError(t, err)
	assert.Contains(t, refs, "files/alice/1_a.txt")

	require.NoError(t, store.Delete(ctx, id))

	assert.Equal(t, []call{
		{"metadata", "memory", "Insert", false},
		{"metadata", "memory", "Get", true},
		{"metadata", "memory", "Update", false},
		{"metadata", "memory", "Query", false},
		{"metadata", "memory", "ContentRefs", false},
		{"metadata", "memory", "Delete", false},
	}, m.calls)

	assert.Same(t, inner, store.(*metadata.InstrumentedStore).Unwrap())
}
