package testing

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a conformance suite for DocumentStore implementations.
// It tests the interface contract, not implementation details, making it
// reusable across backends (memory, badger, postgres).
//
// Usage:
//
//	func TestMyDocumentStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) metadata.DocumentStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty DocumentStore for each test.
	// Implementations register their own cleanup on t.
	NewStore func(t *testing.T) metadata.DocumentStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("CRUD", suite.RunCRUDTests)
	t.Run("Query", suite.RunQueryTests)
}

func testContext() context.Context {
	return context.Background()
}

// base is a fixed instant so ordering assertions do not depend on the clock.
var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// NewFolder builds an unsaved folder record.
func NewFolder(owner, parent, name string) *metadata.Entity {
	return &metadata.Entity{
		Name:     name,
		Kind:     metadata.KindFolder,
		OwnerID:  owner,
		ParentID: parent,
	}
}

// NewFile builds an unsaved file record with a synthetic content ref.
func NewFile(owner, parent, name string, size int64) *metadata.Entity {
	return &metadata.Entity{
		Name:       name,
		Kind:       metadata.KindFile,
		OwnerID:    owner,
		ParentID:   parent,
		MimeType:   "application/octet-stream",
		SizeBytes:  size,
		ContentRef: "files/" + owner + "/" + name,
		ContentURL: "mem://files/" + owner + "/" + name,
	}
}

func mustInsert(t *testing.T, store metadata.DocumentStore, e *metadata.Entity) string {
	t.Helper()
	id, err := store.Insert(testContext(), e)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func mustGet(t *testing.T, store metadata.DocumentStore, id string) *metadata.Entity {
	t.Helper()
	e, err := store.Get(testContext(), id)
	require.NoError(t, err)
	return e
}

func names(entities []*metadata.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Name)
	}
	return out
}
