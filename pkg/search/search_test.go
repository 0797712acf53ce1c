package search

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metadata/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T) *memory.MemoryDocumentStore {
	t.Helper()
	store := memory.NewMemoryDocumentStoreWithDefaults()

	put := func(id, name string, kind metadata.Kind, parent string, offset int, inTrash bool) {
		e := &metadata.Entity{
			ID: id, Name: name, Kind: kind, OwnerID: "u1", ParentID: parent,
			CreatedAt: base.Add(time.Duration(offset) * time.Minute),
			UpdatedAt: base,
		}
		if kind == metadata.KindFile {
			e.ContentRef = "files/u1/" + name
		}
		if inTrash {
			e.InTrash = true
			e.DeletedAt = metadata.Time(base)
		}
		store.Put(e)
	}

	put("reports", "Reports", metadata.KindFolder, "", 1, false)
	put("final", "report-final.txt", metadata.KindFile, "", 2, false)
	put("photo", "Holiday.JPG", metadata.KindFile, "reports", 3, false)
	put("old", "old-report.doc", metadata.KindFile, "", 4, true)
	put("bin", "Bin", metadata.KindFolder, "", 5, true)
	put("hidden", "report-hidden.txt", metadata.KindFile, "bin", 6, false)
	store.Put(&metadata.Entity{
		ID: "foreign", Name: "report-theirs", Kind: metadata.KindFolder, OwnerID: "u2",
		CreatedAt: base, UpdatedAt: base,
	})
	return store
}

func names(entities []*metadata.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

// searchers returns every implementation over the same store.
func searchers(store metadata.DocumentStore) map[string]Searcher {
	return map[string]Searcher{
		"scan":  NewScanner(store, 0, nil),
		"index": NewIndex(store, 0, nil),
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	for name, s := range searchers(seed(t)) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Search(ctx, "u1", "report")
			require.NoError(t, err)
			assert.Equal(t, []string{"Reports", "report-final.txt"}, names(got))

			got, err = s.Search(ctx, "u1", "REPORT")
			require.NoError(t, err)
			assert.Equal(t, []string{"Reports", "report-final.txt"}, names(got), "case-insensitive")

			got, err = s.Search(ctx, "u1", "jpg")
			require.NoError(t, err)
			assert.Equal(t, []string{"Holiday.JPG"}, names(got))

			got, err = s.Search(ctx, "u1", "folder")
			require.NoError(t, err)
			assert.Equal(t, []string{"Reports"}, names(got), "kind label matches")

			got, err = s.Search(ctx, "u1", "")
			require.NoError(t, err)
			assert.Equal(t, []string{"Reports", "report-final.txt", "Holiday.JPG"}, names(got))

			got, err = s.Search(ctx, "u1", "zzz")
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)

			_, err = s.Search(ctx, "", "x")
			assert.True(t, metadata.IsInvalidArgument(err))
		})
	}
}

func TestSearch_UpstreamFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, s := range searchers(seed(t)) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Search(ctx, "u1", "x")
			assert.True(t, metadata.IsUpstreamFailure(err))
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestIndex_Incremental(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	ix := NewIndex(store, 0, nil)

	assert.False(t, ix.Loaded("u1"))
	_, err := ix.Search(ctx, "u1", "report")
	require.NoError(t, err)
	assert.True(t, ix.Loaded("u1"))

	// A record written behind the index's back is invisible until Put.
	added := &metadata.Entity{
		ID: "q2", Name: "Q2 report.xlsx", Kind: metadata.KindFile, OwnerID: "u1",
		ContentRef: "files/u1/q2", CreatedAt: base.Add(time.Hour), UpdatedAt: base,
	}
	store.Put(added)

	got, err := ix.Search(ctx, "u1", "report")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	ix.Put(added)
	got, err = ix.Search(ctx, "u1", "report")
	require.NoError(t, err)
	assert.Equal(t, []string{"Reports", "report-final.txt", "Q2 report.xlsx"}, names(got))

	// Renames are reflected.
	renamed := added.Clone()
	renamed.Name = "budget.xlsx"
	ix.Put(renamed)
	got, err = ix.Search(ctx, "u1", "report")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Trashing a folder hides its descendants.
	reports, err := store.Get(ctx, "reports")
	require.NoError(t, err)
	reports.InTrash = true
	reports.DeletedAt = metadata.Time(base)
	ix.EntityTrashed(reports)

	got, err = ix.Search(ctx, "u1", "holiday")
	require.NoError(t, err)
	assert.Empty(t, got)

	// Deletion removes.
	final, err := store.Get(ctx, "final")
	require.NoError(t, err)
	ix.EntityDeleted(final)
	got, err = ix.Search(ctx, "u1", "report")
	require.NoError(t, err)
	assert.Empty(t, got)

	// Invalidate reloads from the store.
	ix.Invalidate("u1")
	assert.False(t, ix.Loaded("u1"))
	got, err = ix.Search(ctx, "u1", "report")
	require.NoError(t, err)
	assert.Equal(t, []string{"Reports", "report-final.txt", "Q2 report.xlsx"}, names(got))
}

func TestIndex_ResultsAreCopies(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(seed(t), 0, nil)

	got, err := ix.Search(ctx, "u1", "reports")
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Name = "mutated"

	again, err := ix.Search(ctx, "u1", "reports")
	require.NoError(t, err)
	assert.Equal(t, "Reports", again[0].Name)
}

func TestIndex_LoadFailureNotCached(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	ix := NewIndex(store, 0, nil)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err := ix.Search(cctx, "u1", "x")
	require.Error(t, err)
	assert.False(t, ix.Loaded("u1"))

	_, err = ix.Search(ctx, "u1", "x")
	require.NoError(t, err)
	assert.True(t, ix.Loaded("u1"))
}

func TestNew(t *testing.T) {
	store := memory.NewMemoryDocumentStoreWithDefaults()

	s, err := New(Config{}, store, 0, nil)
	require.NoError(t, err)
	assert.IsType(t, &Index{}, s)

	s, err = New(Config{Mode: ModeScan}, store, 0, nil)
	require.NoError(t, err)
	assert.IsType(t, &Scanner{}, s)

	_, err = New(Config{Mode: "magic"}, store, 0, nil)
	assert.Error(t, err)
}
