// Package vectorstore defines the vector storage abstraction used by the
// document pipeline.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrCollectionNotFound is returned when an operation targets a collection
// that does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// OversizedRecordError reports a record whose metadata payload exceeds the
// segment length the current chunk configuration allows. Index builds that
// fail with this error can be retried with a larger chunk size.
type OversizedRecordError struct {
	// Required is the metadata payload length that was rejected.
	Required int
	// Limit is the segment length the payload was checked against.
	Limit int
}

func (e *OversizedRecordError) Error() string {
	return fmt.Sprintf("Metadata length (%d) is longer than chunk size (%d)", e.Required, e.Limit)
}

// IsOversizedRecord reports whether err wraps an OversizedRecordError.
func IsOversizedRecord(err error) bool {
	var oversized *OversizedRecordError
	return errors.As(err, &oversized)
}

var metadataLenPattern = regexp.MustCompile(`[Mm]etadata length \((\d+)\)`)

// ParseOversizedLength extracts the rejected payload length from an
// oversized-record error message. Returns 0 when no length is present.
func ParseOversizedLength(err error) int {
	if err == nil {
		return 0
	}
	var oversized *OversizedRecordError
	if errors.As(err, &oversized) {
		return oversized.Required
	}
	m := metadataLenPattern.FindStringSubmatch(err.Error())
	if len(m) != 2 {
		return 0
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0
	}
	return n
}

// Record is a single embedded chunk persisted in a collection.
type Record struct {
	ID           string         `json:"id"`
	DocumentID   string         `json:"document_id"`
	DocumentName string         `json:"document_name"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Embedding    []float32      `json:"embedding"`
}

// SearchResult is a scored record returned by a similarity search.
type SearchResult struct {
	ID           string
	DocumentName string
	Content      string
	Score        float32
	Metadata     map[string]any
}

// Store abstracts a vector collection backend.
//
// Collections are created lazily per agent. DropCollection is idempotent:
// dropping a missing collection is not an error.
type Store interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, name string, dim int) error

	// HasCollection reports whether the collection exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// Insert appends records to the collection. metadataLimit, when positive,
	// bounds the serialized metadata payload per record; violations return an
	// OversizedRecordError.
	Insert(ctx context.Context, name string, records []*Record, metadataLimit int) error

	// Search returns the topK most similar records.
	Search(ctx context.Context, name string, embedding []float32, topK int) ([]*SearchResult, error)

	// DropCollection removes the collection and all its records.
	DropCollection(ctx context.Context, name string) error

	// Stats returns the number of records in the collection.
	Stats(ctx context.Context, name string) (int64, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
