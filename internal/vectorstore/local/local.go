// Package local implements a file-backed vector store. Each collection lives
// in its own directory under a configured root and is persisted as a single
// JSON index, making it suitable for single-node deployments without external
// infrastructure.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kart-io/agent-studio/internal/pkg/textutil"
	"github.com/kart-io/agent-studio/internal/vectorstore"
)

const indexFileName = "index.json"

// Store is a file-backed vectorstore.Store implementation.
type Store struct {
	root string

	mu sync.Mutex
}

var _ vectorstore.Store = (*Store)(nil)

// New creates a local store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("local store root directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local store root: %w", err)
	}
	return &Store{root: dir}, nil
}

// collectionIndex is the on-disk layout of a collection.
type collectionIndex struct {
	Dimension int                   `json:"dimension"`
	Records   []*vectorstore.Record `json:"records"`
}

func (s *Store) collectionDir(name string) string {
	return filepath.Join(s.root, name)
}

func (s *Store) indexPath(name string) string {
	return filepath.Join(s.root, name, indexFileName)
}

// EnsureCollection creates the collection directory and index if absent.
func (s *Store) EnsureCollection(_ context.Context, name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.indexPath(name)); err == nil {
		return nil
	}
	if err := os.MkdirAll(s.collectionDir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}
	return s.writeIndex(name, &collectionIndex{Dimension: dim})
}

// HasCollection reports whether the collection index exists on disk.
func (s *Store) HasCollection(_ context.Context, name string) (bool, error) {
	if _, err := os.Stat(s.indexPath(name)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Insert appends records to the collection index. The whole batch is rejected
// when any record's metadata payload exceeds metadataLimit, so a failed
// insert leaves the collection unchanged.
func (s *Store) Insert(ctx context.Context, name string, records []*vectorstore.Record, metadataLimit int) error {
	if len(records) == 0 {
		return nil
	}

	if metadataLimit > 0 {
		for _, rec := range records {
			if len(rec.Metadata) == 0 {
				continue
			}
			payload, err := json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("failed to serialize record metadata: %w", err)
			}
			if len(payload) > metadataLimit {
				return &vectorstore.OversizedRecordError{Required: len(payload), Limit: metadataLimit}
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex(name)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if idx.Dimension > 0 && len(rec.Embedding) != idx.Dimension {
			return fmt.Errorf("embedding dimension mismatch: got %d, collection expects %d", len(rec.Embedding), idx.Dimension)
		}
	}
	idx.Records = append(idx.Records, records...)
	return s.writeIndex(name, idx)
}

// Search scans the collection and returns the topK records ranked by
// normalized cosine similarity.
func (s *Store) Search(_ context.Context, name string, embedding []float32, topK int) ([]*vectorstore.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex(name)
	if err != nil {
		return nil, err
	}

	results := make([]*vectorstore.SearchResult, 0, len(idx.Records))
	for _, rec := range idx.Records {
		score := textutil.NormalizeCosineSimilarity(textutil.CosineSimilarity(embedding, rec.Embedding))
		results = append(results, &vectorstore.SearchResult{
			ID:           rec.ID,
			DocumentName: rec.DocumentName,
			Content:      rec.Content,
			Score:        float32(score),
			Metadata:     rec.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DropCollection removes the collection directory. Dropping a collection that
// does not exist is a no-op.
func (s *Store) DropCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.collectionDir(name)); err != nil {
		return fmt.Errorf("failed to remove collection directory: %w", err)
	}
	return nil
}

// Stats returns the number of records in the collection.
func (s *Store) Stats(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex(name)
	if err != nil {
		return 0, err
	}
	return int64(len(idx.Records)), nil
}

// Close is a no-op for the file-backed store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

func (s *Store) readIndex(name string) (*collectionIndex, error) {
	data, err := os.ReadFile(s.indexPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, name)
		}
		return nil, fmt.Errorf("failed to read collection index: %w", err)
	}
	var idx collectionIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to decode collection index: %w", err)
	}
	return &idx, nil
}

// writeIndex persists the index atomically via a temp file rename so readers
// never observe a partially written index.
func (s *Store) writeIndex(name string, idx *collectionIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode collection index: %w", err)
	}

	tmp, err := os.CreateTemp(s.collectionDir(name), indexFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp index file: %w", err)
	}
	if err := os.Rename(tmpPath, s.indexPath(name)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace collection index: %w", err)
	}
	return nil
}
