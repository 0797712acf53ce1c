package testing

import (
	"testing"
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCRUDTests executes insert/get/update/delete contract tests.
func (suite *StoreTestSuite) RunCRUDTests(t *testing.T) {
	t.Run("Insert_AssignsID", suite.testInsertAssignsID)
	t.Run("Insert_RejectsInvalid", suite.testInsertRejectsInvalid)
	t.Run("Get_NotFound", suite.testGetNotFound)
	t.Run("Get_ReturnsCopy", suite.testGetReturnsCopy)
	t.Run("Update_Patch", suite.testUpdatePatch)
	t.Run("Update_ClearDeletedAt", suite.testUpdateClearDeletedAt)
	t.Run("Update_NotFound", suite.testUpdateNotFound)
	t.Run("Update_RejectsInvalid", suite.testUpdateRejectsInvalid)
	t.Run("Delete", suite.testDelete)
	t.Run("Delete_NotFound", suite.testDeleteNotFound)
	t.Run("Now", suite.testNow)
}

// ============================================================================
// Insert / Get
// ============================================================================

func (suite *StoreTestSuite) testInsertAssignsID(t *testing.T) {
	store := suite.NewStore(t)

	in := NewFile("alice", "", "  q1.pdf ", 42)
	in.ID = "ignored"
	id := mustInsert(t, store, in)
	assert.NotEqual(t, "ignored", id)

	got := mustGet(t, store, id)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "q1.pdf", got.Name)
	assert.Equal(t, metadata.KindFile, got.Kind)
	assert.Equal(t, "alice", got.OwnerID)
	assert.Equal(t, int64(42), got.SizeBytes)
	assert.False(t, got.CreatedAt.IsZero())
	assert.True(t, got.UpdatedAt.Equal(got.CreatedAt))

	other := mustInsert(t, store, NewFolder("alice", "", "Reports"))
	assert.NotEqual(t, id, other)
}

func (suite *StoreTestSuite) testInsertRejectsInvalid(t *testing.T) {
	store := suite.NewStore(t)

	cases := map[string]*metadata.Entity{
		"empty name":        NewFolder("alice", "", "   "),
		"empty owner":       NewFolder("", "", "Reports"),
		"unknown kind":      {Name: "x", Kind: "link", OwnerID: "alice"},
		"file without ref":  {Name: "x", Kind: metadata.KindFile, OwnerID: "alice"},
		"trash without ts":  {Name: "x", Kind: metadata.KindFolder, OwnerID: "alice", InTrash: true},
		"folder with bytes": {Name: "x", Kind: metadata.KindFolder, OwnerID: "alice", SizeBytes: 10},
	}

	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := store.Insert(testContext(), e)
			require.Error(t, err)
			assert.True(t, metadata.IsInvalidArgument(err), "got %v", err)
		})
	}
}

func (suite *StoreTestSuite) testGetNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Get(testContext(), "does-not-exist")
	require.Error(t, err)
	assert.True(t, metadata.IsNotFound(err))
}

func (suite *StoreTestSuite) testGetReturnsCopy(t *testing.T) {
	store := suite.NewStore(t)
	id := mustInsert(t, store, NewFolder("alice", "", "Reports"))

	first := mustGet(t, store, id)
	first.Name = "mutated"

	second := mustGet(t, store, id)
	assert.Equal(t, "Reports", second.Name)
}

// ============================================================================
// Update
// ============================================================================

func (suite *StoreTestSuite) testUpdatePatch(t *testing.T) {
	store := suite.NewStore(t)
	id := mustInsert(t, store, NewFolder("alice", "", "Reports"))

	deleted := base.Add(time.Hour)
	err := store.Update(testContext(), id, metadata.Patch{
		Name:      metadata.String("Archive"),
		Starred:   metadata.Bool(true),
		InTrash:   metadata.Bool(true),
		DeletedAt: metadata.Time(deleted),
		UpdatedAt: deleted,
	})
	require.NoError(t, err)

	got := mustGet(t, store, id)
	assert.Equal(t, "Archive", got.Name)
	assert.True(t, got.Starred)
	assert.True(t, got.InTrash)
	require.NotNil(t, got.DeletedAt)
	assert.True(t, got.DeletedAt.Equal(deleted))
	assert.True(t, got.UpdatedAt.Equal(deleted))

	// Untouched fields survive.
	assert.Equal(t, metadata.KindFolder, got.Kind)
	assert.Equal(t, "alice", got.OwnerID)
}

func (suite *StoreTestSuite) testUpdateClearDeletedAt(t *testing.T) {
	store := suite.NewStore(t)
	e := NewFolder("alice", "", "Reports")
	e.InTrash = true
	e.DeletedAt = metadata.Time(base)
	id := mustInsert(t, store, e)

	err := store.Update(testContext(), id, metadata.Patch{
		InTrash:        metadata.Bool(false),
		ClearDeletedAt: true,
	})
	require.NoError(t, err)

	got := mustGet(t, store, id)
	assert.False(t, got.InTrash)
	assert.Nil(t, got.DeletedAt)
}

func (suite *StoreTestSuite) testUpdateNotFound(t *testing.T) {
	store := suite.NewStore(t)

	err := store.Update(testContext(), "missing", metadata.Patch{Starred: metadata.Bool(true)})
	require.Error(t, err)
	assert.True(t, metadata.IsNotFound(err))
}

func (suite *StoreTestSuite) testUpdateRejectsInvalid(t *testing.T) {
	store := suite.NewStore(t)
	id := mustInsert(t, store, NewFolder("alice", "", "Reports"))

	// Trash without a timestamp violates the deleted_at invariant.
	err := store.Update(testContext(), id, metadata.Patch{InTrash: metadata.Bool(true)})
	require.Error(t, err)
	assert.True(t, metadata.IsInvalidArgument(err))

	got := mustGet(t, store, id)
	assert.False(t, got.InTrash)
}

// ============================================================================
// Delete
// ============================================================================

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	store := suite.NewStore(t)
	id := mustInsert(t, store, NewFolder("alice", "", "Reports"))

	require.NoError(t, store.Delete(testContext(), id))

	_, err := store.Get(testContext(), id)
	assert.True(t, metadata.IsNotFound(err))

	rest, err := store.Query(testContext(), metadata.Query{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func (suite *StoreTestSuite) testDeleteNotFound(t *testing.T) {
	store := suite.NewStore(t)

	err := store.Delete(testContext(), "missing")
	require.Error(t, err)
	assert.True(t, metadata.IsNotFound(err))
}

func (suite *StoreTestSuite) testNow(t *testing.T) {
	store := suite.NewStore(t)

	now, err := store.Now(testContext())
	require.NoError(t, err)
	assert.False(t, now.IsZero())
}
