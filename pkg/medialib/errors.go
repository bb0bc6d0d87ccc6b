package medialib

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrContentNotFound indicates a content item was not found
	ErrContentNotFound = errors.New("content not found")

	// ErrCategoryNotFound indicates a category was not found
	ErrCategoryNotFound = errors.New("category not found")

	// ErrAssetNotFound indicates neither a local file nor a remote URL could
	// serve the requested variant
	ErrAssetNotFound = errors.New("asset not found")

	// ErrUnsupportedMedia indicates an upload extension outside the allow-list
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrSlugTaken indicates a category slug collision
	ErrSlugTaken = errors.New("category slug already exists")

	// ErrCategoryCycle indicates the parent chain of a category loops back on
	// itself; traversal treats this as a data-integrity error
	ErrCategoryCycle = errors.New("category hierarchy contains a cycle")

	// ErrNoGateway indicates an operation needed the remote object gateway
	// but none is configured
	ErrNoGateway = errors.New("no object gateway configured")
)

// ValidationError reports a request field that failed construction-time
// validation. It maps to a 400 at the HTTP surface.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError carries a non-success status returned by the remote origin
// while proxying. The same status is surfaced to the caller, never masked as
// a generic failure.
type UpstreamError struct {
	URL        string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d for %s", e.StatusCode, e.URL)
}

// ContentError represents an error related to a content operation
type ContentError struct {
	ContentID int64
	Op        string
	Err       error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content operation %s failed for content %d: %v", e.Op, e.ContentID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to gateway or local storage
// operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
