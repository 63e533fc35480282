// Package milvus implements the vector store on top of a Milvus deployment.
// Each agent collection maps to one Milvus collection.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/entity"

	milvuscomp "github.com/kart-io/agent-studio/pkg/component/milvus"

	"github.com/kart-io/agent-studio/internal/vectorstore"
)

// Field names stored alongside every embedding.
const (
	fieldRecordID     = "record_id"
	fieldDocumentID   = "document_id"
	fieldDocumentName = "document_name"
	fieldContent      = "content"
	fieldMetadata     = "metadata"

	maxContentLen  = 65535
	maxMetadataLen = 65535
)

// Store is a Milvus-backed vectorstore.Store implementation.
type Store struct {
	client *milvuscomp.Client
}

var _ vectorstore.Store = (*Store)(nil)

// New creates a Milvus-backed store.
func New(client *milvuscomp.Client) *Store {
	return &Store{client: client}
}

// EnsureCollection creates the collection with the shared record schema.
func (s *Store) EnsureCollection(ctx context.Context, name string, dim int) error {
	schema := &milvuscomp.CollectionSchema{
		Name:        name,
		Description: "agent document collection",
		Dimension:   dim,
		MetaFields: []milvuscomp.MetaField{
			{Name: fieldRecordID, DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: fieldDocumentID, DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: fieldDocumentName, DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: fieldContent, DataType: entity.FieldTypeVarChar, MaxLen: maxContentLen},
			{Name: fieldMetadata, DataType: entity.FieldTypeVarChar, MaxLen: maxMetadataLen},
		},
	}
	if err := s.client.CreateCollection(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", name, err)
	}
	return nil
}

// HasCollection reports whether the collection exists.
func (s *Store) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.client.HasCollection(ctx, name)
}

// Insert appends records to the collection. The metadata payload check runs
// before anything reaches Milvus so that oversized batches fail the same way
// they do on the local backend, without partial writes.
func (s *Store) Insert(ctx context.Context, name string, records []*vectorstore.Record, metadataLimit int) error {
	if len(records) == 0 {
		return nil
	}

	embeddings := make([][]float32, len(records))
	recordIDs := make([]any, len(records))
	documentIDs := make([]any, len(records))
	documentNames := make([]any, len(records))
	contents := make([]any, len(records))
	metadatas := make([]any, len(records))

	for i, rec := range records {
		payload := "{}"
		if len(rec.Metadata) > 0 {
			data, err := json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("failed to serialize record metadata: %w", err)
			}
			payload = string(data)
		}
		limit := metadataLimit
		if limit <= 0 || limit > maxMetadataLen {
			limit = maxMetadataLen
		}
		if len(payload) > limit {
			return &vectorstore.OversizedRecordError{Required: len(payload), Limit: limit}
		}

		embeddings[i] = rec.Embedding
		recordIDs[i] = rec.ID
		documentIDs[i] = rec.DocumentID
		documentNames[i] = rec.DocumentName
		contents[i] = rec.Content
		metadatas[i] = payload
	}

	data := &milvuscomp.InsertData{
		Embeddings: embeddings,
		Metadata: map[string][]any{
			fieldRecordID:     recordIDs,
			fieldDocumentID:   documentIDs,
			fieldDocumentName: documentNames,
			fieldContent:      contents,
			fieldMetadata:     metadatas,
		},
	}

	if _, err := s.client.Insert(ctx, name, data); err != nil {
		return fmt.Errorf("failed to insert records into %s: %w", name, err)
	}
	return nil
}

// Search returns the topK most similar records.
func (s *Store) Search(ctx context.Context, name string, embedding []float32, topK int) ([]*vectorstore.SearchResult, error) {
	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, name)
	}

	outputFields := []string{fieldRecordID, fieldDocumentName, fieldContent, fieldMetadata}
	hits, err := s.client.Search(ctx, name, embedding, topK, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", name, err)
	}

	results := make([]*vectorstore.SearchResult, 0, len(hits))
	for _, hit := range hits {
		result := &vectorstore.SearchResult{Score: hit.Score}
		if v, ok := hit.Metadata[fieldRecordID].(string); ok {
			result.ID = v
		}
		if v, ok := hit.Metadata[fieldDocumentName].(string); ok {
			result.DocumentName = v
		}
		if v, ok := hit.Metadata[fieldContent].(string); ok {
			result.Content = v
		}
		if v, ok := hit.Metadata[fieldMetadata].(string); ok && v != "" && v != "{}" {
			meta := make(map[string]any)
			if err := json.Unmarshal([]byte(v), &meta); err == nil {
				result.Metadata = meta
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// DropCollection removes the collection. Dropping a missing collection is a
// no-op.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return s.client.DropCollection(ctx, name)
}

// Stats returns the number of records in the collection.
func (s *Store) Stats(ctx context.Context, name string) (int64, error) {
	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, name)
	}
	return s.client.GetCollectionStats(ctx, name)
}

// Close closes the underlying Milvus client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
