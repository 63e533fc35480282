package biz

import (
	"context"

	"github.com/kart-io/agent-studio/internal/model"
	"github.com/kart-io/agent-studio/internal/pipeline"
)

// RAGRuntime answers questions from the agent's indexed documents via the
// pipeline engine. Query results are cached per collection when a cache is
// configured.
type RAGRuntime struct {
	engine *pipeline.Engine
	cache  *QueryCache
}

// NewRAGRuntime creates the document-aware runtime. cache may be nil.
func NewRAGRuntime(engine *pipeline.Engine, cache *QueryCache) *RAGRuntime {
	return &RAGRuntime{engine: engine, cache: cache}
}

// Engine exposes the pipeline engine for document and collection management.
func (r *RAGRuntime) Engine() *pipeline.Engine {
	return r.engine
}

func (r *RAGRuntime) Process(ctx context.Context, prompt string, rc *RunContext) (*model.QueryResult, error) {
	collection := rc.Agent.CollectionID()

	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, collection, prompt); err == nil && cached != nil {
			return cached, nil
		}
	}

	result, err := r.engine.Answer(ctx, collection, prompt)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, collection, prompt, result)
	}
	return result, nil
}
