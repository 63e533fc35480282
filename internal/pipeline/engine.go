package pipeline

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"

	"github.com/kart-io/agent-studio/internal/vectorstore"
	"github.com/kart-io/agent-studio/pkg/llm"
)

const (
	// DefaultMaxBuildAttempts bounds the chunk-resize retry loop of one build.
	DefaultMaxBuildAttempts = 5
	// DefaultTopK is the number of excerpts retrieved for answering.
	DefaultTopK = 3
	// DefaultContextTopK is the number of snippets returned by Context.
	DefaultContextTopK = 5
)

// Config tunes an Engine. Zero values fall back to the defaults above.
type Config struct {
	MaxBuildAttempts int
	TopK             int
	ContextTopK      int
}

func (c *Config) complete() {
	if c.MaxBuildAttempts <= 0 {
		c.MaxBuildAttempts = DefaultMaxBuildAttempts
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.ContextTopK <= 0 {
		c.ContextTopK = DefaultContextTopK
	}
}

// Engine runs the document pipeline end to end: classify, extract, chunk,
// embed, index, and answer questions against the indexed collections.
type Engine struct {
	store    vectorstore.Store
	embedder llm.EmbeddingProvider
	chat     llm.ChatProvider
	sizes    *SizeTable
	cfg      Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	entropy *ulid.MonotonicEntropy
	entMu   sync.Mutex
}

// NewEngine creates an Engine over the given store and model providers.
func NewEngine(store vectorstore.Store, embedder llm.EmbeddingProvider, chat llm.ChatProvider, cfg Config) *Engine {
	cfg.complete()
	return &Engine{
		store:    store,
		embedder: embedder,
		chat:     chat,
		sizes:    NewSizeTable(),
		cfg:      cfg,
		locks:    make(map[string]*sync.Mutex),
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Sizes exposes the chunk size table, mainly for tests and stats reporting.
func (e *Engine) Sizes() *SizeTable {
	return e.sizes
}

// collectionLock returns the mutex serializing builds for one collection.
// Concurrent uploads to the same agent index one document at a time;
// different agents proceed in parallel.
func (e *Engine) collectionLock(name string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[name] = lock
	}
	return lock
}

func (e *Engine) newID() string {
	e.entMu.Lock()
	defer e.entMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), e.entropy).String()
}

// ProcessDocument ingests one file into the collection: the file is staged
// into a private temp directory, extracted, chunked at the category's current
// size, embedded and inserted. An oversized-record rejection grows the
// category size and retries the chunk/embed/insert step, bounded by
// MaxBuildAttempts. New documents merge into an existing collection; the
// collection is only dropped on failure when this build created it.
func (e *Engine) ProcessDocument(ctx context.Context, path, collection string) error {
	staged, cleanup, err := e.stageFile(path)
	if err != nil {
		return &ExtractionError{Path: path, Err: err}
	}
	defer cleanup()

	category, err := Classify(staged)
	if err != nil {
		return err
	}
	units, err := ExtractFile(ctx, staged)
	if err != nil {
		return err
	}

	lock := e.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	preExisting, err := e.store.HasCollection(ctx, collection)
	if err != nil {
		return &IndexBuildError{Collection: collection, Err: err}
	}

	documentID := e.newID()
	documentName := filepath.Base(path)

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxBuildAttempts; attempt++ {
		size := e.sizes.Get(category)
		err := e.buildIndex(ctx, collection, documentID, documentName, units, size)
		if err == nil {
			logger.Infof("Indexed %s into %s (%d units, chunk size %d)",
				documentName, collection, len(units), size)
			return nil
		}
		if vectorstore.IsOversizedRecord(err) {
			next := e.sizes.Grow(category, err)
			logger.Warnf("Oversized record in %s, growing %s chunk size %d -> %d (attempt %d/%d)",
				collection, category, size, next, attempt, e.cfg.MaxBuildAttempts)
			lastErr = err
			continue
		}
		e.cleanupFailedBuild(ctx, collection, preExisting)
		return &IndexBuildError{Collection: collection, Err: err}
	}

	e.cleanupFailedBuild(ctx, collection, preExisting)
	return &IndexBuildError{
		Collection: collection,
		Err:        fmt.Errorf("exhausted %d build attempts: %w", e.cfg.MaxBuildAttempts, lastErr),
	}
}

// buildIndex performs one chunk/embed/insert pass at the given chunk size.
func (e *Engine) buildIndex(ctx context.Context, collection, documentID, documentName string, units []Unit, size int) error {
	var records []*vectorstore.Record
	var texts []string

	for _, unit := range units {
		for _, chunk := range SplitText(unit.Text, size) {
			records = append(records, &vectorstore.Record{
				ID:           e.newID(),
				DocumentID:   documentID,
				DocumentName: documentName,
				Content:      chunk,
				Metadata:     unit.Metadata,
			})
			texts = append(texts, chunk)
		}
	}
	if len(records) == 0 {
		return fmt.Errorf("document produced no chunks")
	}

	embeddings, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(records) {
		return fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(records), len(embeddings))
	}
	for i, embedding := range embeddings {
		records[i].Embedding = embedding
	}

	if err := e.store.EnsureCollection(ctx, collection, len(embeddings[0])); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	return e.store.Insert(ctx, collection, records, size)
}

// cleanupFailedBuild drops the collection a failed build created so no
// half-indexed collection is left answering queries. Collections that existed
// before the build keep their prior contents.
func (e *Engine) cleanupFailedBuild(ctx context.Context, collection string, preExisting bool) {
	if preExisting {
		return
	}
	if err := e.store.DropCollection(ctx, collection); err != nil {
		logger.Errorf("Failed to clean up collection %s after failed build: %v", collection, err)
	}
}

// stageFile copies the upload into a private temp directory so extraction
// never touches the caller's file. The returned cleanup removes the whole
// directory and is safe to call on every exit path.
func (e *Engine) stageFile(path string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "pipeline-staging-*")
	if err != nil {
		return "", nil, fmt.Errorf("create staging dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warnf("Failed to remove staging dir %s: %v", dir, err)
		}
	}

	src, err := os.Open(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	defer src.Close()

	staged := filepath.Join(dir, filepath.Base(path))
	dst, err := os.Create(staged)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		cleanup()
		return "", nil, fmt.Errorf("stage file: %w", err)
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return staged, cleanup, nil
}

// DeleteCollection removes an agent's collection. Missing collections are not
// an error so deletes stay idempotent.
func (e *Engine) DeleteCollection(ctx context.Context, collection string) error {
	lock := e.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()
	return e.store.DropCollection(ctx, collection)
}

// CollectionStats returns the number of indexed records, or 0 when the
// collection does not exist yet.
func (e *Engine) CollectionStats(ctx context.Context, collection string) (int64, error) {
	exists, err := e.store.HasCollection(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	return e.store.Stats(ctx, collection)
}
