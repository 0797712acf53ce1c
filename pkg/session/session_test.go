package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	contentmemory "github.com/marmos91/dittodrive/pkg/content/memory"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metadata/memory"
	"github.com/marmos91/dittodrive/pkg/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "alice"

func newService(t *testing.T) *drive.Service {
	t.Helper()
	blobs, err := contentmemory.NewMemoryBlobStore(context.Background(), contentmemory.MemoryBlobStoreConfig{})
	require.NoError(t, err)

	svc, err := drive.NewService(drive.ServiceConfig{
		Store: memory.NewMemoryDocumentStoreWithDefaults(),
		Blobs: blobs,
	})
	require.NoError(t, err)
	return svc
}

func names(entities []*metadata.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Name)
	}
	return out
}

func upload(t *testing.T, s *Session, name string) *metadata.Entity {
	t.Helper()
	data := []byte(name)
	f, err := s.Upload(context.Background(), name, "text/plain", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	return f
}

func TestNew(t *testing.T) {
	s := New(newService(t), owner)

	assert.Equal(t, owner, s.OwnerID())
	assert.Empty(t, s.CurrentFolder())
	assert.Empty(t, s.Files())
	assert.Empty(t, s.Path())
	assert.Nil(t, s.SearchResults())
	key, order := s.Sort()
	assert.Equal(t, view.SortByName, key)
	assert.Equal(t, view.Ascending, order)
	assert.Equal(t, view.Filter{Kind: view.KindAll, Date: view.DateAll}, s.Filter())
	assert.NoError(t, s.Err())
}

func TestNavigation(t *testing.T) {
	ctx := context.Background()
	s := New(newService(t), owner)
	require.NoError(t, s.Refresh(ctx))

	reports, err := s.CreateFolder(ctx, "Reports")
	require.NoError(t, err)
	assert.Equal(t, []string{"Reports"}, names(s.Files()))

	require.NoError(t, s.Open(ctx, reports.ID))
	assert.Equal(t, reports.ID, s.CurrentFolder())
	assert.Equal(t, []metadata.Crumb{{ID: reports.ID, Name: "Reports"}}, s.Path())
	assert.Empty(t, s.Files())

	q1 := upload(t, s, "q1.pdf")
	assert.Equal(t, reports.ID, q1.ParentID)
	assert.Equal(t, []string{"q1.pdf"}, names(s.Files()))

	require.NoError(t, s.Open(ctx, ""))
	assert.Empty(t, s.Path())
	assert.Equal(t, []string{"Reports"}, names(s.Files()))
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := New(newService(t), owner)

	_, err := s.CreateFolder(ctx, "Reports")
	require.NoError(t, err)
	upload(t, s, "report-final.txt")
	upload(t, s, "notes.md")

	require.NoError(t, s.Search(ctx, "REPORT"))
	assert.Equal(t, "REPORT", s.SearchTerm())
	assert.ElementsMatch(t, []string{"Reports", "report-final.txt"}, names(s.SearchResults()))

	// Search supersedes the folder listing; folders still come first.
	assert.Equal(t, []string{"Reports", "report-final.txt"}, names(s.Visible(time.Now())))

	require.NoError(t, s.Search(ctx, "  "))
	assert.Empty(t, s.SearchTerm())
	assert.Nil(t, s.SearchResults())
	assert.Len(t, s.Visible(time.Now()), 3)

	require.NoError(t, s.Search(ctx, "notes"))
	s.ClearSearch()
	assert.Nil(t, s.SearchResults())
}

func TestVisibleAppliesSortAndFilter(t *testing.T) {
	ctx := context.Background()
	s := New(newService(t), owner)

	_, err := s.CreateFolder(ctx, "b-folder")
	require.NoError(t, err)
	upload(t, s, "a.txt")
	upload(t, s, "c.txt")

	s.SetSort(view.SortByName, view.Descending)
	assert.Equal(t, []string{"b-folder", "c.txt", "a.txt"}, names(s.Visible(time.Now())))

	s.SetFilter(view.Filter{Kind: view.KindFile, Date: view.DateAll})
	assert.Equal(t, []string{"c.txt", "a.txt"}, names(s.Visible(time.Now())))

	s.SetFilter(view.Filter{Kind: view.KindAll, Date: view.DateLastDay})
	assert.Empty(t, s.Visible(time.Now().Add(48*time.Hour)))
}

func TestMutationsRefreshLists(t *testing.T) {
	ctx := context.Background()
	s := New(newService(t), owner)

	f := upload(t, s, "draft.txt")

	_, err := s.ToggleStarred(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"draft.txt"}, names(s.Starred()))

	_, err = s.Rename(ctx, f.ID, "final.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"final.txt"}, names(s.Files()))
	assert.Equal(t, []string{"final.txt"}, names(s.Starred()))

	require.NoError(t, s.MoveToTrash(ctx, f.ID))
	assert.Empty(t, s.Files())
	assert.Empty(t, s.Starred())
	assert.Equal(t, []string{"final.txt"}, names(s.Trash()))

	require.NoError(t, s.Restore(ctx, f.ID))
	assert.Equal(t, []string{"final.txt"}, names(s.Files()))
	assert.Empty(t, s.Trash())

	require.NoError(t, s.MoveToTrash(ctx, f.ID))
	n, err := s.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, s.Trash())

	g := upload(t, s, "other.txt")
	require.NoError(t, s.Delete(ctx, g.ID))
	assert.Empty(t, s.Files())
}

func TestMutationKeepsActiveSearch(t *testing.T) {
	ctx := context.Background()
	s := New(newService(t), owner)
	f := upload(t, s, "budget.xlsx")
	upload(t, s, "budget-old.xlsx")

	require.NoError(t, s.Search(ctx, "budget"))
	require.Len(t, s.SearchResults(), 2)

	require.NoError(t, s.MoveToTrash(ctx, f.ID))
	assert.Equal(t, "budget", s.SearchTerm())
	assert.Equal(t, []string{"budget-old.xlsx"}, names(s.SearchResults()))

	_, err := s.CreateFolder(ctx, "Budgets")
	require.NoError(t, err)
	assert.Equal(t, "budget", s.SearchTerm())
	assert.ElementsMatch(t, []string{"budget-old.xlsx", "Budgets"}, names(s.SearchResults()))

	upload(t, s, "budget-2025.xlsx")
	assert.Equal(t, "budget", s.SearchTerm())
	assert.ElementsMatch(t, []string{"budget-old.xlsx", "Budgets", "budget-2025.xlsx"}, names(s.SearchResults()))
	assert.Len(t, s.Files(), 3, "the folder listing is refreshed underneath the search")
}

type observingReader struct {
	r       io.Reader
	s       *Session
	samples []map[string]float64
}

func (o *observingReader) Read(p []byte) (int, error) {
	o.samples = append(o.samples, o.s.Uploads())
	return o.r.Read(p)
}

func TestUploadProgress(t *testing.T) {
	ctx := context.Background()
	s := New(newService(t), owner)

	data := bytes.Repeat([]byte("z"), 1024)
	reader := &observingReader{r: bytes.NewReader(data), s: s}

	_, err := s.Upload(ctx, "big.bin", "", int64(len(data)), reader)
	require.NoError(t, err)

	require.NotEmpty(t, reader.samples)
	assert.Len(t, reader.samples[0], 1, "upload is tracked while in flight")
	assert.Empty(t, s.Uploads(), "entry removed when done")
}

// flakyDrive fails selected reads.
type flakyDrive struct {
	*drive.Service
	listErr   error
	searchErr error
}

func (d *flakyDrive) List(ctx context.Context, ownerID, parentID string) ([]*metadata.Entity, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	return d.Service.List(ctx, ownerID, parentID)
}

func (d *flakyDrive) Search(ctx context.Context, ownerID, term string) ([]*metadata.Entity, error) {
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	return d.Service.Search(ctx, ownerID, term)
}

func TestDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	d := &flakyDrive{Service: newService(t)}
	s := New(d, owner)
	upload(t, s, "a.txt")
	require.Len(t, s.Files(), 1)

	boom := errors.New("repository offline")
	d.listErr = boom
	err := s.Refresh(ctx)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, s.Files())
	assert.NotNil(t, s.Files())
	assert.ErrorIs(t, s.Err(), boom)
	assert.Empty(t, s.Visible(time.Now()))

	d.searchErr = boom
	require.Error(t, s.Search(ctx, "a"))
	assert.NotNil(t, s.SearchResults())
	assert.Empty(t, s.SearchResults())

	d.listErr = nil
	require.NoError(t, s.Refresh(ctx))
	assert.Len(t, s.Files(), 1)
}

func TestMutationErrorsSurface(t *testing.T) {
	ctx := context.Background()
	s := New(newService(t), owner)

	_, err := s.CreateFolder(ctx, "  ")
	require.Error(t, err)
	assert.True(t, metadata.IsInvalidArgument(err))
	assert.Equal(t, err, s.Err())

	err = s.Delete(ctx, "missing")
	assert.True(t, metadata.IsNotFound(err))
}
