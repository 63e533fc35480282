package pipeline

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/agent-studio/internal/vectorstore"
	"github.com/kart-io/agent-studio/internal/vectorstore/local"
	"github.com/kart-io/agent-studio/pkg/llm"
)

// fakeEmbedder produces deterministic vectors from the text content.
type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) vector(text string) []float32 {
	dim := f.dim
	if dim == 0 {
		dim = 4
	}
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()
	vec := make([]float32, dim)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000)/1000 + 0.001
	}
	return vec
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	return f.vector(text), nil
}

func (f *fakeEmbedder) Name() string { return "fake-embedder" }

// fakeChat records the blocks it was asked to complete.
type fakeChat struct {
	response string
	calls    int
	blocks   []llm.ContentBlock
}

func (f *fakeChat) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return f.response, nil
}

func (f *fakeChat) Generate(_ context.Context, _, _ string) (string, error) {
	return f.response, nil
}

func (f *fakeChat) Complete(_ context.Context, blocks []llm.ContentBlock) (*llm.GenerateResponse, error) {
	f.calls++
	f.blocks = blocks
	return &llm.GenerateResponse{
		Content: f.response,
		Model:   "fake-model",
		Usage:   &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (f *fakeChat) Name() string { return "fake-chat" }

// stubStore scripts insert failures to drive the retry loop.
type stubStore struct {
	has          bool
	insertErrs   []error
	insertLimits []int
	inserted     []*vectorstore.Record
	dropped      []string
}

func (s *stubStore) EnsureCollection(_ context.Context, _ string, _ int) error {
	return nil
}

func (s *stubStore) HasCollection(_ context.Context, _ string) (bool, error) {
	return s.has, nil
}

func (s *stubStore) Insert(_ context.Context, _ string, records []*vectorstore.Record, metadataLimit int) error {
	s.insertLimits = append(s.insertLimits, metadataLimit)
	if len(s.insertErrs) > 0 {
		err := s.insertErrs[0]
		s.insertErrs = s.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	s.inserted = append(s.inserted, records...)
	s.has = true
	return nil
}

func (s *stubStore) Search(_ context.Context, _ string, _ []float32, _ int) ([]*vectorstore.SearchResult, error) {
	return nil, nil
}

func (s *stubStore) DropCollection(_ context.Context, name string) error {
	s.dropped = append(s.dropped, name)
	s.has = false
	return nil
}

func (s *stubStore) Stats(_ context.Context, _ string) (int64, error) {
	return int64(len(s.inserted)), nil
}

func (s *stubStore) Close(_ context.Context) error { return nil }

func newLocalEngine(t *testing.T, chat *fakeChat) (*Engine, vectorstore.Store) {
	t.Helper()
	store, err := local.New(t.TempDir())
	require.NoError(t, err)
	return NewEngine(store, &fakeEmbedder{}, chat, Config{}), store
}

func TestProcessDocumentIndexesAndAnswers(t *testing.T) {
	chat := &fakeChat{response: "the plan ships in March"}
	engine, _ := newLocalEngine(t, chat)

	path := writeTempFile(t, "plan.txt", []byte("The launch plan.\n\nWe ship in March.\n\nBudget is approved."))
	require.NoError(t, engine.ProcessDocument(context.Background(), path, "agent_1"))

	count, err := engine.CollectionStats(context.Background(), "agent_1")
	require.NoError(t, err)
	assert.Greater(t, count, int64(0))

	result, err := engine.Answer(context.Background(), "agent_1", "when do we ship?")
	require.NoError(t, err)
	assert.Equal(t, "the plan ships in March", result.Answer)
	assert.Equal(t, "fake-model", result.Metadata["model"])
	require.NotEmpty(t, result.Sources)
	assert.Greater(t, result.Sources[0].Score, float32(0))

	require.Equal(t, 1, chat.calls)
	require.NotEmpty(t, chat.blocks)
	last := chat.blocks[len(chat.blocks)-1]
	assert.Equal(t, llm.ContentBlockText, last.Type)
	assert.Contains(t, last.Text, "[1]")
	assert.Contains(t, last.Text, "when do we ship?")
}

func TestProcessDocumentGrowsChunkSizeOnOversizedRecord(t *testing.T) {
	store := &stubStore{
		insertErrs: []error{
			&vectorstore.OversizedRecordError{Required: 3000, Limit: 2048},
			nil,
		},
	}
	engine := NewEngine(store, &fakeEmbedder{}, &fakeChat{}, Config{})

	path := writeTempFile(t, "big.txt", []byte("some document body"))
	require.NoError(t, engine.ProcessDocument(context.Background(), path, "agent_2"))

	// ceil(3000 * 1.2) = 3600, applied to the retry's metadata limit.
	require.Len(t, store.insertLimits, 2)
	assert.Equal(t, 2048, store.insertLimits[0])
	assert.Equal(t, 3600, store.insertLimits[1])
	assert.Equal(t, 3600, engine.Sizes().Get(CategoryDocuments))
	assert.Empty(t, store.dropped)
}

func TestProcessDocumentExhaustsAttempts(t *testing.T) {
	store := &stubStore{}
	for i := 0; i < 10; i++ {
		store.insertErrs = append(store.insertErrs, &vectorstore.OversizedRecordError{Required: 0, Limit: 0})
	}
	engine := NewEngine(store, &fakeEmbedder{}, &fakeChat{}, Config{MaxBuildAttempts: 3})

	path := writeTempFile(t, "doc.txt", []byte("content"))
	err := engine.ProcessDocument(context.Background(), path, "agent_3")

	require.Error(t, err)
	var buildErr *IndexBuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Len(t, store.insertLimits, 3)
	// The build created the collection, so failure cleans it up.
	assert.Equal(t, []string{"agent_3"}, store.dropped)
}

func TestProcessDocumentKeepsPreexistingCollectionOnFailure(t *testing.T) {
	store := &stubStore{
		has:        true,
		insertErrs: []error{assert.AnError},
	}
	engine := NewEngine(store, &fakeEmbedder{}, &fakeChat{}, Config{})

	path := writeTempFile(t, "doc.txt", []byte("content"))
	err := engine.ProcessDocument(context.Background(), path, "agent_4")

	require.Error(t, err)
	var buildErr *IndexBuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Empty(t, store.dropped)
}

func TestProcessDocumentRejectsUnsupportedUpload(t *testing.T) {
	engine, _ := newLocalEngine(t, &fakeChat{})

	path := writeTempFile(t, "archive.zip", []byte("not really a zip"))
	err := engine.ProcessDocument(context.Background(), path, "agent_5")

	require.Error(t, err)
	assert.True(t, IsUnsupportedFormat(err))
}

func TestAnswerWithoutCollection(t *testing.T) {
	chat := &fakeChat{response: "should not be called"}
	engine, _ := newLocalEngine(t, chat)

	result, err := engine.Answer(context.Background(), "agent_none", "anything?")

	require.NoError(t, err)
	assert.Equal(t, NoDocumentsAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Zero(t, chat.calls)
}

func TestAnswerWithoutRelevantContent(t *testing.T) {
	chat := &fakeChat{response: "should not be called"}
	engine, store := newLocalEngine(t, chat)
	require.NoError(t, store.EnsureCollection(context.Background(), "agent_6", 4))

	result, err := engine.Answer(context.Background(), "agent_6", "anything?")

	require.NoError(t, err)
	assert.Equal(t, NoRelevantContentAnswer, result.Answer)
	assert.Zero(t, chat.calls)
}

func TestAnswerCarriesImagesAndTruncatesExcerpts(t *testing.T) {
	chat := &fakeChat{response: "it is a bar chart"}
	engine, store := newLocalEngine(t, chat)
	embedder := &fakeEmbedder{}

	longText := strings.Repeat("x", 900)
	records := []*vectorstore.Record{
		{
			ID: "r1", DocumentID: "d1", DocumentName: "chart.png",
			Content:   longText,
			Embedding: embedder.vector(longText),
			Metadata: map[string]any{
				"images": []any{map[string]any{"type": "image", "data": "aGVsbG8="}},
			},
		},
	}
	require.NoError(t, store.EnsureCollection(context.Background(), "agent_7", 4))
	require.NoError(t, store.Insert(context.Background(), "agent_7", records, 4096))

	result, err := engine.Answer(context.Background(), "agent_7", "what does the chart show?")

	require.NoError(t, err)
	assert.Equal(t, "it is a bar chart", result.Answer)
	require.Len(t, result.Sources, 1)
	assert.True(t, result.Sources[0].HasImages)
	assert.LessOrEqual(t, len(result.Sources[0].Text), 503) // 500 runes + ellipsis
	assert.True(t, strings.HasSuffix(result.Sources[0].Text, "..."))

	var imageBlocks int
	for _, block := range chat.blocks {
		if block.Type == llm.ContentBlockImage {
			imageBlocks++
			assert.Equal(t, "aGVsbG8=", block.Data)
		}
	}
	assert.Equal(t, 1, imageBlocks)
}

func TestContextReturnsTopSnippets(t *testing.T) {
	engine, store := newLocalEngine(t, &fakeChat{})
	embedder := &fakeEmbedder{}

	var records []*vectorstore.Record
	for i := 0; i < 8; i++ {
		content := strings.Repeat("note ", i+1)
		records = append(records, &vectorstore.Record{
			ID:         string(rune('a' + i)),
			DocumentID: "d1", DocumentName: "notes.txt",
			Content:   content,
			Embedding: embedder.vector(content),
		})
	}
	require.NoError(t, store.EnsureCollection(context.Background(), "agent_8", 4))
	require.NoError(t, store.Insert(context.Background(), "agent_8", records, 4096))

	snippets, err := engine.Context(context.Background(), "agent_8", "notes")

	require.NoError(t, err)
	assert.Len(t, snippets, 5)
	for _, snippet := range snippets {
		assert.NotEmpty(t, snippet.Text)
	}
}

func TestContextMissingCollection(t *testing.T) {
	engine, _ := newLocalEngine(t, &fakeChat{})

	_, err := engine.Context(context.Background(), "agent_missing", "query")

	require.Error(t, err)
	var retrievalErr *RetrievalError
	assert.ErrorAs(t, err, &retrievalErr)
}

func TestDeleteCollectionIsIdempotent(t *testing.T) {
	engine, _ := newLocalEngine(t, &fakeChat{})
	ctx := context.Background()

	path := writeTempFile(t, "doc.txt", []byte("body text"))
	require.NoError(t, engine.ProcessDocument(ctx, path, "agent_9"))

	require.NoError(t, engine.DeleteCollection(ctx, "agent_9"))
	require.NoError(t, engine.DeleteCollection(ctx, "agent_9"))

	count, err := engine.CollectionStats(ctx, "agent_9")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestProcessDocumentRemovesStagingDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	engine, _ := newLocalEngine(t, &fakeChat{})
	path := writeTempFile(t, "ok.txt", []byte("document body"))
	require.NoError(t, engine.ProcessDocument(context.Background(), path, "agent_11"))
	assertNoStagingDirs(t, tmp)

	failing := NewEngine(&stubStore{insertErrs: []error{assert.AnError}}, &fakeEmbedder{}, &fakeChat{}, Config{})
	path = writeTempFile(t, "bad.txt", []byte("document body"))
	require.Error(t, failing.ProcessDocument(context.Background(), path, "agent_12"))
	assertNoStagingDirs(t, tmp)
}

func assertNoStagingDirs(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), "pipeline-staging-"),
			"staging directory %s left behind", entry.Name())
	}
}

func TestStagingLeavesOriginalUntouched(t *testing.T) {
	engine, _ := newLocalEngine(t, &fakeChat{})

	dir := t.TempDir()
	path := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(path, []byte("original body"), 0o600))

	require.NoError(t, engine.ProcessDocument(context.Background(), path, "agent_10"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original body", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
