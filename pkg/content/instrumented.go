package content

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/marmos91/dittodrive/pkg/metrics"
)

// InstrumentedStore wraps a BlobStore and records every call.
type InstrumentedStore struct {
	inner   BlobStore
	backend string
	metrics metrics.StoreMetrics
}

// Instrument wraps store so that every call is reported to m under backend.
// Returns store unchanged when m is nil.
func Instrument(store BlobStore, backend string, m metrics.StoreMetrics) BlobStore {
	if m == nil {
		return store
	}
	return &InstrumentedStore{inner: store, backend: backend, metrics: m}
}

// Unwrap returns the wrapped store.
func (s *InstrumentedStore) Unwrap() BlobStore {
	return s.inner
}

func (s *InstrumentedStore) record(op string, start time.Time, err error) {
	s.metrics.RecordStoreOperation("content", s.backend, op, time.Since(start), err)
}

func (s *InstrumentedStore) Put(ctx context.Context, path string, r io.Reader, size int64, progress ProgressFunc) (obj Object, err error) {
	defer func(start time.Time) { s.record("Put", start, err) }(time.Now())
	return s.inner.Put(ctx, path, r, size, progress)
}

func (s *InstrumentedStore) ResolveURL(ctx context.Context, ref string) (url string, err error) {
	defer func(start time.Time) { s.record("ResolveURL", start, err) }(time.Now())
	return s.inner.ResolveURL(ctx, ref)
}

func (s *InstrumentedStore) Remove(ctx context.Context, ref string) (err error) {
	defer func(start time.Time) { s.record("Remove", start, err) }(time.Now())
	return s.inner.Remove(ctx, ref)
}

// List delegates to the wrapped store, failing when it cannot enumerate blobs.
func (s *InstrumentedStore) List(ctx context.Context) (out []ObjectInfo, err error) {
	defer func(start time.Time) { s.record("List", start, err) }(time.Now())
	lister, ok := s.inner.(Lister)
	if !ok {
		return nil, fmt.Errorf("%s blob store does not implement Lister", s.backend)
	}
	return lister.List(ctx)
}
