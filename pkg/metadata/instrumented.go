package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittodrive/pkg/metrics"
)

// InstrumentedStore wraps a DocumentStore and records every call.
type InstrumentedStore struct {
	inner   DocumentStore
	backend string
	metrics metrics.StoreMetrics
}

// Instrument wraps store so that every call is reported to m under backend.
// Returns store unchanged when m is nil.
func Instrument(store DocumentStore, backend string, m metrics.StoreMetrics) DocumentStore {
	if m == nil {
		return store
	}
	return &InstrumentedStore{inner: store, backend: backend, metrics: m}
}

// Unwrap returns the wrapped store.
func (s *InstrumentedStore) Unwrap() DocumentStore {
	return s.inner
}

func (s *InstrumentedStore) record(op string, start time.Time, err error) {
	s.metrics.RecordStoreOperation("metadata", s.backend, op, time.Since(start), err)
}

func (s *InstrumentedStore) Insert(ctx context.Context, e *Entity) (id string, err error) {
	defer func(start time.Time) { s.record("Insert", start, err) }(time.Now())
	return s.inner.Insert(ctx, e)
}

func (s *InstrumentedStore) Get(ctx context.Context, id string) (e *Entity, err error) {
	defer func(start time.Time) { s.record("Get", start, err) }(time.Now())
	return s.inner.Get(ctx, id)
}

func (s *InstrumentedStore) Update(ctx context.Context, id string, patch Patch) (err error) {
	defer func(start time.Time) { s.record("Update", start, err) }(time.Now())
	return s.inner.Update(ctx, id, patch)
}

func (s *InstrumentedStore) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { s.record("Delete", start, err) }(time.Now())
	return s.inner.Delete(ctx, id)
}

func (s *InstrumentedStore) Query(ctx context.Context, q Query) (out []*Entity, err error) {
	defer func(start time.Time) { s.record("Query", start, err) }(time.Now())
	return s.inner.Query(ctx, q)
}

func (s *InstrumentedStore) Now(ctx context.Context) (t time.Time, err error) {
	defer func(start time.Time) { s.record("Now", start, err) }(time.Now())
	return s.inner.Now(ctx)
}

// ContentRefs delegates to the wrapped store, failing when it cannot list
// references.
func (s *InstrumentedStore) ContentRefs(ctx context.Context) (refs map[string]struct{}, err error) {
	defer func(start time.Time) { s.record("ContentRefs", start, err) }(time.Now())
	lister, ok := s.inner.(ContentRefLister)
	if !ok {
		return nil, fmt.Errorf("%s store does not implement ContentRefLister", s.backend)
	}
	return lister.ContentRefs(ctx)
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
