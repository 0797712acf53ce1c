package metrics

import "time"

// StoreMetrics provides observability for backend store calls.
//
// Implementations can collect metrics about document store operations
// (Insert, Get, Query, ...) and blob store operations (Put, Remove, List, ...)
// across every configured backend.
//
// This interface is optional - if not provided, stores are used directly
// without instrumentation (zero overhead).
//
// Example usage:
//
//	m := prometheus.NewStoreMetrics()
//	store = metadata.Instrument(store, "badger", m)
//	blobs = content.Instrument(blobs, "s3", m)
type StoreMetrics interface {
	// RecordStoreOperation records a completed backend call.
	//
	// Parameters:
	//   - kind: "metadata" or "content"
	//   - backend: Backend type (e.g., "memory", "badger", "postgres", "s3")
	//   - operation: Operation name (e.g., "Get", "Query", "Put")
	//   - duration: Time taken to complete the call
	//   - err: Error if the call failed, nil if successful
	RecordStoreOperation(kind, backend, operation string, duration time.Duration, err error)
}

// NewNoopStoreMetrics returns a StoreMetrics that discards everything.
func NewNoopStoreMetrics() StoreMetrics {
	return noopStoreMetrics{}
}

type noopStoreMetrics struct{}

func (noopStoreMetrics) RecordStoreOperation(kind, backend, operation string, duration time.Duration, err error) {
}
