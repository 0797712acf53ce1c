package testing

import (
	"testing"

	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunResolveTests exercises ResolveURL.
func (suite *StoreTestSuite) RunResolveTests(t *testing.T) {
	t.Run("Existing", suite.testResolveExisting)
	t.Run("NotFound", suite.testResolveNotFound)
}

func (suite *StoreTestSuite) testResolveExisting(t *testing.T) {
	store := suite.NewStore(t)
	obj := mustPut(t, store, "files/u1/doc.pdf", []byte("%PDF"))

	url, err := store.ResolveURL(testContext(), obj.Ref)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

func (suite *StoreTestSuite) testResolveNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.ResolveURL(testContext(), "files/u1/missing")
	AssertErrorIs(t, content.ErrBlobNotFound, err)
}

// RunRemoveTests exercises Remove.
func (suite *StoreTestSuite) RunRemoveTests(t *testing.T) {
	t.Run("Success", suite.testRemoveSuccess)
	t.Run("Idempotent", suite.testRemoveIdempotent)
}

func (suite *StoreTestSuite) testRemoveSuccess(t *testing.T) {
	store := suite.NewStore(t)
	obj := mustPut(t, store, "files/u1/gone.txt", []byte("bye"))

	require.NoError(t, store.Remove(testContext(), obj.Ref))

	_, err := store.ResolveURL(testContext(), obj.Ref)
	AssertErrorIs(t, content.ErrBlobNotFound, err)
}

func (suite *StoreTestSuite) testRemoveIdempotent(t *testing.T) {
	store := suite.NewStore(t)

	require.NoError(t, store.Remove(testContext(), "files/u1/never-existed"))
}

// RunListTests exercises Lister when the store implements it.
func (suite *StoreTestSuite) RunListTests(t *testing.T) {
	t.Run("Contents", suite.testListContents)
}

func (suite *StoreTestSuite) testListContents(t *testing.T) {
	store := suite.NewStore(t)
	lister, ok := store.(content.Lister)
	if !ok {
		t.Skip("Store does not implement Lister")
	}

	mustPut(t, store, "files/u1/a.txt", []byte("a"))
	mustPut(t, store, "files/u2/b.txt", []byte("bb"))
	removed := mustPut(t, store, "files/u1/c.txt", []byte("ccc"))
	require.NoError(t, store.Remove(testContext(), removed.Ref))

	infos, err := lister.List(testContext())
	require.NoError(t, err)

	sizes := make(map[string]int64)
	for _, info := range infos {
		sizes[info.Ref] = info.Size
	}
	assert.Equal(t, map[string]int64{
		"files/u1/a.txt": 1,
		"files/u2/b.txt": 2,
	}, sizes)
}
