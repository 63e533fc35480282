package pipeline

import (
	"errors"
	"fmt"
)

// UnsupportedFormatError is returned when a file extension maps to no known
// document category.
type UnsupportedFormatError struct {
	// Ext is the offending file extension, including the leading dot.
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Ext)
}

// IsUnsupportedFormat reports whether err wraps an UnsupportedFormatError.
func IsUnsupportedFormat(err error) bool {
	var unsupported *UnsupportedFormatError
	return errors.As(err, &unsupported)
}

// ExtractionError is returned when content extraction fails for a readable,
// supported file.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract content from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IndexBuildError is returned when index construction fails for reasons other
// than a retriable oversized record.
type IndexBuildError struct {
	Collection string
	Err        error
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("failed to build index for collection %s: %v", e.Collection, e.Err)
}

func (e *IndexBuildError) Unwrap() error {
	return e.Err
}

// RetrievalError is returned when similarity search or answer synthesis fails
// for an existing collection.
type RetrievalError struct {
	Collection string
	Err        error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed for collection %s: %v", e.Collection, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
