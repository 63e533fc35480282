package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/agent-studio/internal/model"
	"github.com/kart-io/agent-studio/internal/pkg/textutil"
	"github.com/kart-io/agent-studio/internal/vectorstore"
	"github.com/kart-io/agent-studio/pkg/llm"
)

const (
	// NoDocumentsAnswer is returned when the agent has no indexed documents.
	NoDocumentsAnswer = "Please upload a document first. I need a document to answer questions from."
	// NoRelevantContentAnswer is returned when retrieval finds nothing usable.
	NoRelevantContentAnswer = "I couldn't find any relevant information in the uploaded document. " +
		"Please try rephrasing your question or upload a different document."

	// excerptRuneLimit bounds each excerpt placed into the prompt and the
	// source previews returned to the caller.
	excerptRuneLimit = 500
)

// Answer retrieves the most relevant excerpts for the question and asks the
// chat model to answer from them, passing any stored images along as
// multimodal content. A missing collection or an empty result set yields a
// canned answer without calling the model.
func (e *Engine) Answer(ctx context.Context, collection, question string) (*model.QueryResult, error) {
	exists, err := e.store.HasCollection(ctx, collection)
	if err != nil {
		return nil, &RetrievalError{Collection: collection, Err: err}
	}
	if !exists {
		return &model.QueryResult{Answer: NoDocumentsAnswer}, nil
	}

	results, err := e.search(ctx, collection, question, e.cfg.TopK)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return &model.QueryResult{Answer: NoDocumentsAnswer}, nil
		}
		return nil, &RetrievalError{Collection: collection, Err: err}
	}
	if len(results) == 0 {
		return &model.QueryResult{Answer: NoRelevantContentAnswer}, nil
	}

	blocks := make([]llm.ContentBlock, 0, 2*len(results)+2)
	sources := make([]model.AnswerSource, 0, len(results))

	var prompt strings.Builder
	prompt.WriteString("Here are relevant excerpts and/or images from the document:\n")
	prompt.WriteString("---------------------\n")

	imageCount := 0
	for i, result := range results {
		excerpt := textutil.TruncateString(result.Content, excerptRuneLimit)
		if excerpt != result.Content {
			excerpt += "..."
		}
		fmt.Fprintf(&prompt, "[%d] %s\n\n", i+1, excerpt)

		images := metadataImages(result.Metadata)
		for _, data := range imagePayloads(images) {
			blocks = append(blocks, llm.ImageBlock(data, "image/jpeg"))
			imageCount++
		}
		sources = append(sources, model.AnswerSource{
			Text:      excerpt,
			Score:     result.Score,
			HasImages: len(images) > 0,
		})
	}

	prompt.WriteString("---------------------\n")
	prompt.WriteString("Based on these excerpts and images, please provide a detailed answer to the following question. ")
	prompt.WriteString("If the answer cannot be found in the provided content, say 'I don't have enough information to answer that question.'\n")
	fmt.Fprintf(&prompt, "Question: %s\nAnswer: ", question)

	blocks = append(blocks, llm.TextBlock(prompt.String()))

	logger.Infof("Answering against %s: %d excerpts, %d images", collection, len(results), imageCount)
	response, err := e.chat.Complete(ctx, blocks)
	if err != nil {
		return nil, &RetrievalError{Collection: collection, Err: fmt.Errorf("generate answer: %w", err)}
	}

	metadata := map[string]any{"model": response.Model}
	if response.Usage != nil {
		metadata["usage"] = response.Usage
	}
	return &model.QueryResult{
		Answer:   response.Content,
		Sources:  sources,
		Metadata: metadata,
	}, nil
}

// Context returns the raw top snippets for the query without answer
// synthesis. A missing collection is a RetrievalError here: callers inspect
// context deliberately and should learn the collection is absent.
func (e *Engine) Context(ctx context.Context, collection, question string) ([]*model.ContextSnippet, error) {
	results, err := e.search(ctx, collection, question, e.cfg.ContextTopK)
	if err != nil {
		return nil, &RetrievalError{Collection: collection, Err: err}
	}

	snippets := make([]*model.ContextSnippet, 0, len(results))
	for _, result := range results {
		snippets = append(snippets, &model.ContextSnippet{
			Text:   result.Content,
			Score:  result.Score,
			Images: metadataImages(result.Metadata),
		})
	}
	return snippets, nil
}

func (e *Engine) search(ctx context.Context, collection, question string, topK int) ([]*vectorstore.SearchResult, error) {
	embedding, err := e.embedder.EmbedSingle(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return e.store.Search(ctx, collection, embedding, topK)
}

// metadataImages pulls the base64 payloads out of a record's images metadata.
func metadataImages(metadata map[string]any) []any {
	if metadata == nil {
		return nil
	}
	list, ok := metadata["images"].([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	return list
}

// imagePayloads extracts the base64 data strings from image metadata entries.
func imagePayloads(images []any) []string {
	payloads := make([]string, 0, len(images))
	for _, entry := range images {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if data, ok := m["data"].(string); ok && data != "" {
			payloads = append(payloads, data)
		}
	}
	return payloads
}
