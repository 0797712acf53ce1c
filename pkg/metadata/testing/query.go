package testing

import (
	"testing"
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunQueryTests executes predicate and ordering tests.
func (suite *StoreTestSuite) RunQueryTests(t *testing.T) {
	t.Run("RequiresOwner", suite.testQueryRequiresOwner)
	t.Run("OwnerIsolation", suite.testQueryOwnerIsolation)
	t.Run("ByParent", suite.testQueryByParent)
	t.Run("Starred", suite.testQueryStarred)
	t.Run("InTrash", suite.testQueryInTrash)
	t.Run("OrderKindName", suite.testQueryOrderKindName)
	t.Run("OrderUpdatedDesc", suite.testQueryOrderUpdatedDesc)
	t.Run("OrderDeletedDesc", suite.testQueryOrderDeletedDesc)
}

func (suite *StoreTestSuite) testQueryRequiresOwner(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Query(testContext(), metadata.Query{})
	require.Error(t, err)
	assert.True(t, metadata.IsInvalidArgument(err))
}

func (suite *StoreTestSuite) testQueryOwnerIsolation(t *testing.T) {
	store := suite.NewStore(t)
	mustInsert(t, store, NewFolder("alice", "", "Reports"))
	mustInsert(t, store, NewFolder("bob", "", "Reports"))

	got, err := store.Query(testContext(), metadata.Query{OwnerID: "alice"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].OwnerID)
}

func (suite *StoreTestSuite) testQueryByParent(t *testing.T) {
	store := suite.NewStore(t)
	reports := mustInsert(t, store, NewFolder("alice", "", "Reports"))
	mustInsert(t, store, NewFile("alice", reports, "q1.pdf", 10))
	mustInsert(t, store, NewFile("alice", "", "notes.txt", 5))

	root, err := store.Query(testContext(), metadata.Query{
		OwnerID:  "alice",
		ParentID: metadata.String(""),
		OrderBy:  metadata.OrderKindName,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Reports", "notes.txt"}, names(root))

	children, err := store.Query(testContext(), metadata.Query{
		OwnerID:  "alice",
		ParentID: metadata.String(reports),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"q1.pdf"}, names(children))
}

func (suite *StoreTestSuite) testQueryStarred(t *testing.T) {
	store := suite.NewStore(t)
	a := mustInsert(t, store, NewFile("alice", "", "a.txt", 1))
	mustInsert(t, store, NewFile("alice", "", "b.txt", 1))

	require.NoError(t, store.Update(testContext(), a, metadata.Patch{Starred: metadata.Bool(true)}))

	got, err := store.Query(testContext(), metadata.Query{OwnerID: "alice", Starred: metadata.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names(got))
}

func (suite *StoreTestSuite) testQueryInTrash(t *testing.T) {
	store := suite.NewStore(t)
	trashed := NewFile("alice", "", "old.txt", 1)
	trashed.InTrash = true
	trashed.DeletedAt = metadata.Time(base)
	mustInsert(t, store, trashed)
	mustInsert(t, store, NewFile("alice", "", "live.txt", 1))

	inTrash, err := store.Query(testContext(), metadata.Query{OwnerID: "alice", InTrash: metadata.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{"old.txt"}, names(inTrash))

	live, err := store.Query(testContext(), metadata.Query{OwnerID: "alice", InTrash: metadata.Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"live.txt"}, names(live))
}

func (suite *StoreTestSuite) testQueryOrderKindName(t *testing.T) {
	store := suite.NewStore(t)
	mustInsert(t, store, NewFile("alice", "", "b.txt", 1))
	mustInsert(t, store, NewFolder("alice", "", "Zeta"))
	mustInsert(t, store, NewFile("alice", "", "a.txt", 1))
	mustInsert(t, store, NewFolder("alice", "", "Alpha"))

	got, err := store.Query(testContext(), metadata.Query{OwnerID: "alice", OrderBy: metadata.OrderKindName})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Zeta", "a.txt", "b.txt"}, names(got))
}

func (suite *StoreTestSuite) testQueryOrderUpdatedDesc(t *testing.T) {
	store := suite.NewStore(t)
	for i, name := range []string{"first", "second", "third"} {
		e := NewFolder("alice", "", name)
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		mustInsert(t, store, e)
	}

	got, err := store.Query(testContext(), metadata.Query{OwnerID: "alice", OrderBy: metadata.OrderUpdatedDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, names(got))

	oldest, err := store.Query(testContext(), metadata.Query{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, names(oldest))
}

func (suite *StoreTestSuite) testQueryOrderDeletedDesc(t *testing.T) {
	store := suite.NewStore(t)
	for i, name := range []string{"early", "late", "middle"} {
		offsets := []time.Duration{time.Minute, 3 * time.Minute, 2 * time.Minute}
		e := NewFolder("alice", "", name)
		e.InTrash = true
		e.DeletedAt = metadata.Time(base.Add(offsets[i]))
		mustInsert(t, store, e)
	}

	got, err := store.Query(testContext(), metadata.Query{
		OwnerID: "alice",
		InTrash: metadata.Bool(true),
		OrderBy: metadata.OrderDeletedDesc,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"late", "middle", "early"}, names(got))
}
