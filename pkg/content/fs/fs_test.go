package fs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/dittodrive/pkg/content"
	contenttesting "github.com/marmos91/dittodrive/pkg/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *FSBlobStore {
	t.Helper()
	store, err := NewFSBlobStore(context.Background(), FSBlobStoreConfig{Path: t.TempDir()})
	require.NoError(t, err)
	return store
}

func TestFSBlobStore(t *testing.T) {
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.BlobStore {
			return newStore(t)
		},
	}
	suite.Run(t)
}

func TestFSBlobStore_RequiresPath(t *testing.T) {
	_, err := NewFSBlobStore(context.Background(), FSBlobStoreConfig{})
	require.Error(t, err)
}

func TestFSBlobStore_WritesUnderBase(t *testing.T) {
	store := newStore(t)

	obj, err := store.Put(context.Background(), "files/u1/note.txt", bytes.NewReader([]byte("hi")), 2, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.URL, "file://"))

	data, err := os.ReadFile(filepath.Join(store.BasePath(), "files", "u1", "note.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)
}

func TestFSBlobStore_RejectsEscapes(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for _, ref := range []string{"../outside", "/etc/passwd", "..", "."} {
		_, err := store.Put(ctx, ref, bytes.NewReader(nil), 0, nil)
		assert.ErrorIs(t, err, content.ErrInvalidRef, ref)
	}
}

func TestFSBlobStore_NoTempFilesAfterFailure(t *testing.T) {
	store := newStore(t)

	_, err := store.Put(context.Background(), "files/u1/short", bytes.NewReader([]byte("a")), 5, nil)
	require.ErrorIs(t, err, content.ErrSizeMismatch)

	entries, err := os.ReadDir(filepath.Join(store.BasePath(), "files", "u1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
