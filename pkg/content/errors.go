package content

import "errors"

// Implementations wrap these with context:
//
//	return fmt.Errorf("blob %s: %w", ref, content.ErrBlobNotFound)

var (
	// ErrBlobNotFound indicates the requested blob does not exist.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidRef indicates a ref or path that the store cannot accept,
	// such as an empty string or one escaping the store root.
	ErrInvalidRef = errors.New("invalid blob reference")

	// ErrSizeMismatch indicates the reader produced a different number of
	// bytes than announced.
	ErrSizeMismatch = errors.New("blob size mismatch")
)
