package metrics

import "time"

// DriveMetrics provides observability for the drive engine.
//
// Implementations collect metrics about entity operations, uploads, cascade
// runs and search queries. This interface is optional - components fall back
// to NewNoopDriveMetrics when nil is passed.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewDriveMetrics()
//	svc, err := drive.NewService(drive.ServiceConfig{Metrics: m, ...})
//
//	// Without metrics (no-op)
//	svc, err := drive.NewService(drive.ServiceConfig{...})
type DriveMetrics interface {
	// RecordOperation records a completed entity operation.
	//
	// Parameters:
	//   - operation: Operation name (e.g., "CreateFolder", "MoveToTrash")
	//   - duration: Time taken to complete the operation
	//   - err: Error if operation failed, nil if successful
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordUpload records an upload attempt and the bytes accepted.
	RecordUpload(bytes int64, duration time.Duration, err error)

	// RecordBlobRemoveFailure counts a best-effort blob removal that failed
	// and was swallowed.
	RecordBlobRemoveFailure()

	// RecordCascade records a finished cascade run.
	//
	// Parameters:
	//   - mode: "trash" or "purge"
	//   - state: Final state ("completed", "partially_failed")
	//   - visited: Number of descendants dispatched
	//   - failures: Number of failed descendant operations
	//   - duration: Wall time of the run
	RecordCascade(mode, state string, visited, failures int, duration time.Duration)

	// RecordSearch records a search query served by backend ("scan", "index").
	RecordSearch(backend string, results int, duration time.Duration)

	// SetIndexedOwners updates the number of owners held by the search index.
	SetIndexedOwners(count int)
}

// NewNoopDriveMetrics returns a DriveMetrics that discards everything.
func NewNoopDriveMetrics() DriveMetrics {
	return noopDriveMetrics{}
}

// noopDriveMetrics is a no-op implementation of DriveMetrics with zero overhead.
type noopDriveMetrics struct{}

func (noopDriveMetrics) RecordOperation(operation string, duration time.Duration, err error) {}
func (noopDriveMetrics) RecordUpload(bytes int64, duration time.Duration, err error)        {}
func (noopDriveMetrics) RecordBlobRemoveFailure()                                          {}
func (noopDriveMetrics) RecordCascade(mode, state string, visited, failures int, duration time.Duration) {
}
func (noopDriveMetrics) RecordSearch(backend string, results int, duration time.Duration) {}
func (noopDriveMetrics) SetIndexedOwners(count int)                                       {}
