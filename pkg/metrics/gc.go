package metrics

import "time"

// GCMetrics provides observability for the orphaned blob collector.
type GCMetrics interface {
	// RecordRun records one collection pass.
	//
	// Parameters:
	//   - scanned: Blobs listed from the blob store
	//   - orphans: Blobs not referenced by any record
	//   - removed: Orphans actually removed (0 in dry-run mode)
	//   - bytesFreed: Total size of removed blobs
	//   - duration: Wall time of the pass
	//   - err: Error that aborted the pass, nil on success
	RecordRun(scanned, orphans, removed int, bytesFreed int64, duration time.Duration, err error)
}

// NewNoopGCMetrics returns a GCMetrics that discards everything.
func NewNoopGCMetrics() GCMetrics {
	return noopGCMetrics{}
}

type noopGCMetrics struct{}

func (noopGCMetrics) RecordRun(scanned, orphans, removed int, bytesFreed int64, duration time.Duration, err error) {
}
