package testing

import (
	"bytes"
	"context"
	"testing"

	"github.com/marmos91/dittodrive/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPutTests exercises Put and progress reporting.
func (suite *StoreTestSuite) RunPutTests(t *testing.T) {
	t.Run("Basic", suite.testPutBasic)
	t.Run("Overwrite", suite.testPutOverwrite)
	t.Run("ProgressMonotonic", suite.testPutProgressMonotonic)
	t.Run("ProgressUnknownSize", suite.testPutProgressUnknownSize)
	t.Run("SizeMismatch", suite.testPutSizeMismatch)
	t.Run("EmptyPath", suite.testPutEmptyPath)
	t.Run("CancelledContext", suite.testPutCancelled)
}

func (suite *StoreTestSuite) testPutBasic(t *testing.T) {
	store := suite.NewStore(t)
	data := []byte("hello, drive")

	obj := mustPut(t, store, "files/u1/1700000000000_hello.txt", data)

	assert.Equal(t, "files/u1/1700000000000_hello.txt", obj.Ref)
	assert.Equal(t, int64(len(data)), obj.Size)
	assert.NotEmpty(t, obj.URL)
}

func (suite *StoreTestSuite) testPutOverwrite(t *testing.T) {
	store := suite.NewStore(t)

	first := mustPut(t, store, "files/u1/a.bin", []byte("old"))
	second := mustPut(t, store, "files/u1/a.bin", []byte("newer data"))

	assert.Equal(t, first.Ref, second.Ref)
	assert.Equal(t, int64(10), second.Size)
}

func (suite *StoreTestSuite) testPutProgressMonotonic(t *testing.T) {
	store := suite.NewStore(t)
	data := payload(64 * 1024)
	rec := &progressRecorder{}

	// Small chunks force several intermediate reports.
	r := &chunkReader{r: bytes.NewReader(data), chunk: 4096}
	_, err := store.Put(testContext(), "files/u1/big.bin", r, int64(len(data)), rec.record)
	require.NoError(t, err)

	values := rec.snapshot()
	require.NotEmpty(t, values)
	assert.Equal(t, float64(0), values[0])
	assert.Equal(t, float64(100), values[len(values)-1])
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "progress must not decrease")
	}
	for _, v := range values[:len(values)-1] {
		assert.Less(t, v, float64(100), "100 is reported only at completion")
	}
}

func (suite *StoreTestSuite) testPutProgressUnknownSize(t *testing.T) {
	store := suite.NewStore(t)
	rec := &progressRecorder{}

	obj, err := store.Put(testContext(), "files/u1/stream.bin", bytes.NewReader(payload(100)), -1, rec.record)
	require.NoError(t, err)
	assert.Equal(t, int64(100), obj.Size)

	assert.Equal(t, []float64{0, 100}, rec.snapshot())
}

func (suite *StoreTestSuite) testPutSizeMismatch(t *testing.T) {
	store := suite.NewStore(t)
	rec := &progressRecorder{}

	_, err := store.Put(testContext(), "files/u1/short.bin", bytes.NewReader([]byte("abc")), 10, rec.record)
	require.Error(t, err)
	AssertErrorIs(t, content.ErrSizeMismatch, err)

	for _, v := range rec.snapshot() {
		assert.Less(t, v, float64(100))
	}
}

func (suite *StoreTestSuite) testPutEmptyPath(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Put(testContext(), "", bytes.NewReader(nil), 0, nil)
	AssertErrorIs(t, content.ErrInvalidRef, err)
}

func (suite *StoreTestSuite) testPutCancelled(t *testing.T) {
	store := suite.NewStore(t)
	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := store.Put(ctx, "files/u1/x", bytes.NewReader([]byte("x")), 1, nil)
	require.ErrorIs(t, err, context.Canceled)
}

// chunkReader returns at most chunk bytes per Read.
type chunkReader struct {
	r     *bytes.Reader
	chunk int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(p) > c.chunk {
		p = p[:c.chunk]
	}
	return c.r.Read(p)
}
