package metadata

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// StoreError represents a domain error from drive operations.
//
// These are business logic errors (entity not found, owner mismatch, etc.)
// as opposed to raw infrastructure errors. Infrastructure errors reach callers
// wrapped in a StoreError with code ErrUpstreamFailure so that every error
// surfaced by the engine carries one of the codes below.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// ID is the entity the error refers to (if applicable)
	ID string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if e.ID != "" {
		msg += ": " + e.ID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrorCode represents the category of a drive error.
type ErrorCode int

const (
	// ErrInvalidArgument indicates missing or malformed input
	// Examples: empty name, empty owner, renaming a file through RenameFolder
	ErrInvalidArgument ErrorCode = iota

	// ErrNotFound indicates the entity doesn't exist
	ErrNotFound

	// ErrUnauthorized indicates the entity belongs to another owner
	ErrUnauthorized

	// ErrUpstreamFailure indicates the document store or blob store call failed
	ErrUpstreamFailure

	// ErrPartialFailure indicates a cascade completed some but not all
	// descendant operations
	ErrPartialFailure
)

func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrNotFound:
		return "NotFound"
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrUpstreamFailure:
		return "UpstreamFailure"
	case ErrPartialFailure:
		return "PartialFailure"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// NewInvalidArgumentError creates an ErrInvalidArgument error.
func NewInvalidArgumentError(format string, args ...any) *StoreError {
	return &StoreError{Code: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates an ErrNotFound error for the given entity id.
func NewNotFoundError(id string) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: "entity not found", ID: id}
}

// NewUnauthorizedError creates an ErrUnauthorized error for the given entity id.
func NewUnauthorizedError(id string) *StoreError {
	return &StoreError{Code: ErrUnauthorized, Message: "entity belongs to another owner", ID: id}
}

// NewUpstreamError wraps an infrastructure error.
//
// Errors that already carry a code are returned unchanged.
func NewUpstreamError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := CodeOf(err); ok {
		return err
	}
	return &StoreError{Code: ErrUpstreamFailure, Message: op + " failed", Err: err}
}

// Failure is a single failed descendant operation within a cascade.
type Failure struct {
	// ID is the entity whose operation failed
	ID string

	// Op is the operation that failed ("enumerate", "delete", "trash")
	Op string

	Err error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.ID, f.Err)
}

// PartialFailureError reports a cascade that left the tree in a mixed state.
//
// Callers can inspect Failures to offer a retry. The cascade may be re-run
// from RootID; already-processed entities are skipped naturally because they
// no longer exist (purge) or are already trashed.
type PartialFailureError struct {
	// RootID is the cascade target; empty for bulk operations.
	RootID   string
	Failures []Failure
}

func (e *PartialFailureError) Error() string {
	var b strings.Builder
	if e.RootID != "" {
		fmt.Fprintf(&b, "partial failure under %s: %d operation(s) failed", e.RootID, len(e.Failures))
	} else {
		fmt.Fprintf(&b, "partial failure: %d operation(s) failed", len(e.Failures))
	}
	if err := e.Cause(); err != nil {
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Cause combines the failure errors into a single error.
func (e *PartialFailureError) Cause() error {
	var combined error
	for _, f := range e.Failures {
		combined = multierr.Append(combined, f)
	}
	return combined
}

// Unwrap exposes every failure to errors.Is and errors.As.
func (e *PartialFailureError) Unwrap() []error {
	return multierr.Errors(e.Cause())
}

// FailedIDs returns the ids of all failed entities.
func (e *PartialFailureError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ID)
	}
	return ids
}

// CodeOf returns the ErrorCode carried by err, if any.
func CodeOf(err error) (ErrorCode, bool) {
	var pfe *PartialFailureError
	if errors.As(err, &pfe) {
		return ErrPartialFailure, true
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsNotFound reports whether err is an ErrNotFound error.
func IsNotFound(err error) bool { return hasCode(err, ErrNotFound) }

// IsUnauthorized reports whether err is an ErrUnauthorized error.
func IsUnauthorized(err error) bool { return hasCode(err, ErrUnauthorized) }

// IsInvalidArgument reports whether err is an ErrInvalidArgument error.
func IsInvalidArgument(err error) bool { return hasCode(err, ErrInvalidArgument) }

// IsUpstreamFailure reports whether err is an ErrUpstreamFailure error.
func IsUpstreamFailure(err error) bool { return hasCode(err, ErrUpstreamFailure) }

// IsPartialFailure reports whether err is a PartialFailureError.
func IsPartialFailure(err error) bool { return hasCode(err, ErrPartialFailure) }
