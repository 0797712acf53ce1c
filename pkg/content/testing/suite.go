package testing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a conformance suite for BlobStore implementations.
// It tests the interface contract, not implementation details, making it
// reusable across backends (memory, filesystem, S3).
//
// Usage:
//
//	func TestMyBlobStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.BlobStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty BlobStore for each test.
	NewStore func(t *testing.T) content.BlobStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Put", suite.RunPutTests)
	t.Run("Resolve", suite.RunResolveTests)
	t.Run("Remove", suite.RunRemoveTests)
	t.Run("List", suite.RunListTests)
}

func testContext() context.Context {
	return context.Background()
}

// AssertErrorIs checks if the error matches the expected error using errors.Is.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Errorf("Expected error %v, got %v", expected, actual)
	}
}

// progressRecorder collects progress callbacks.
type progressRecorder struct {
	mu     sync.Mutex
	values []float64
}

func (r *progressRecorder) record(p float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, p)
}

func (r *progressRecorder) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.values...)
}

func mustPut(t *testing.T, store content.BlobStore, path string, data []byte) content.Object {
	t.Helper()
	obj, err := store.Put(testContext(), path, bytes.NewReader(data), int64(len(data)), nil)
	require.NoError(t, err, "Put should succeed")
	require.NotEmpty(t, obj.Ref)
	return obj
}

// payload returns n bytes of deterministic data.
func payload(n int) []byte {
	return []byte(strings.Repeat("0123456789abcdef", n/16+1)[:n])
}
