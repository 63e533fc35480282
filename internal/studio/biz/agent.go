package biz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"

	"github.com/kart-io/agent-studio/internal/model"
	"github.com/kart-io/agent-studio/internal/pipeline"
	"github.com/kart-io/agent-studio/internal/studio/store"
)

// Sentinel errors surfaced to the handler layer.
var (
	ErrAgentNotFound   = errors.New("agent not found")
	ErrAgentInactive   = errors.New("agent is not active")
	ErrNotDocumentable = errors.New("only rag agents can process documents")
	ErrOfficeLockFile  = errors.New("cannot process office temporary files; close the editor and try again")
)

// AgentService manages agent lifecycle and dispatches queries to runtimes.
type AgentService struct {
	store     store.Factory
	runtimes  *RuntimeFactory
	rag       *RAGRuntime
	cache     *QueryCache
	uploadDir string
	ingest    *ants.Pool
}

// NewAgentService creates the agent service. ingestWorkers bounds concurrent
// document ingestions across all agents.
func NewAgentService(factory store.Factory, runtimes *RuntimeFactory, rag *RAGRuntime, cache *QueryCache, uploadDir string, ingestWorkers int) (*AgentService, error) {
	if ingestWorkers <= 0 {
		ingestWorkers = 4
	}
	pool, err := ants.NewPool(ingestWorkers)
	if err != nil {
		return nil, fmt.Errorf("create ingest pool: %w", err)
	}
	return &AgentService{
		store:     factory,
		runtimes:  runtimes,
		rag:       rag,
		cache:     cache,
		uploadDir: uploadDir,
		ingest:    pool,
	}, nil
}

// Close releases the ingest worker pool.
func (s *AgentService) Close() {
	s.ingest.Release()
}

// CreateAgent persists a new agent, filling in the per-type default
// configuration when none is supplied.
func (s *AgentService) CreateAgent(ctx context.Context, agent *model.Agent) (*model.Agent, error) {
	if strings.TrimSpace(agent.Name) == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if agent.Status == "" {
		agent.Status = model.AgentStatusActive
	}
	if len(agent.Configuration) == 0 {
		agent.Configuration = DefaultConfiguration(agent.Type)
	}

	if err := s.store.Agents().Create(ctx, agent); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	logger.Infof("Created agent %d (%s, %s)", agent.ID, agent.Name, agent.Type)
	return agent, nil
}

// GetAgent looks up an agent by ID.
func (s *AgentService) GetAgent(ctx context.Context, id uint64) (*model.Agent, error) {
	agent, err := s.store.Agents().Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return agent, nil
}

// ListAgents pages through agents.
func (s *AgentService) ListAgents(ctx context.Context, offset, limit int) (int64, []*model.Agent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.Agents().List(ctx, offset, limit)
}

// AgentUpdate carries the fields an update may change; nil fields keep their
// current values.
type AgentUpdate struct {
	Name          *string
	Type          *model.AgentType
	Status        *model.AgentStatus
	Configuration map[string]any
}

// UpdateAgent applies a partial update. Switching an agent to the rag type
// fills in the document defaults so uploads work immediately.
func (s *AgentService) UpdateAgent(ctx context.Context, id uint64, update *AgentUpdate) (*model.Agent, error) {
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		agent.Name = *update.Name
	}
	if update.Type != nil && *update.Type != agent.Type {
		agent.Type = *update.Type
		if len(update.Configuration) == 0 {
			agent.Configuration = DefaultConfiguration(agent.Type)
		}
	}
	if update.Status != nil {
		agent.Status = *update.Status
	}
	if update.Configuration != nil {
		agent.Configuration = update.Configuration
	}

	if err := s.store.Agents().Update(ctx, agent); err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}
	return agent, nil
}

// DeleteAgent removes the agent, its document collection and any staged
// uploads. Deleting a missing agent returns ErrAgentNotFound.
func (s *AgentService) DeleteAgent(ctx context.Context, id uint64) error {
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Agents().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}

	if agent.Type == model.AgentTypeRAG {
		if err := s.rag.Engine().DeleteCollection(ctx, agent.CollectionID()); err != nil {
			logger.Warnf("Failed to delete collection %s: %v", agent.CollectionID(), err)
		}
		if s.cache != nil {
			_ = s.cache.Invalidate(ctx)
		}
	}
	s.removeAgentUploads(id)

	logger.Infof("Deleted agent %d (%s)", id, agent.Name)
	return nil
}

// removeAgentUploads removes staged upload files belonging to the agent and
// any leftover office lock files.
func (s *AgentService) removeAgentUploads(id uint64) {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return
	}
	prefix := fmt.Sprintf("agent_%d_", id)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix) || strings.HasPrefix(name, "~$") {
			if err := os.Remove(filepath.Join(s.uploadDir, name)); err != nil {
				logger.Warnf("Failed to remove upload %s: %v", name, err)
			}
		}
	}
}

// Query dispatches a prompt to the agent's runtime. The agent must be active.
func (s *AgentService) Query(ctx context.Context, id uint64, prompt, language, mode string) (*model.QueryResult, error) {
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !agent.IsActive() {
		return nil, ErrAgentInactive
	}

	runtime, err := s.runtimes.ForType(agent.Type)
	if err != nil {
		return nil, err
	}

	result, err := runtime.Process(ctx, prompt, &RunContext{
		Agent:    agent,
		Language: language,
		Mode:     mode,
	})
	if err != nil {
		return nil, err
	}

	if result.Metadata == nil {
		result.Metadata = make(map[string]any)
	}
	result.Metadata["agent_id"] = agent.ID
	result.Metadata["agent_type"] = string(agent.Type)
	return result, nil
}

// UploadDocument stores the uploaded bytes and indexes them into the agent's
// collection. Ingestion runs on the bounded worker pool; the call returns
// when indexing finishes. The staged file is removed afterwards.
func (s *AgentService) UploadDocument(ctx context.Context, id uint64, filename string, content io.Reader) error {
	if strings.HasPrefix(filepath.Base(filename), "~$") {
		return ErrOfficeLockFile
	}

	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return err
	}
	if agent.Type != model.AgentTypeRAG {
		return ErrNotDocumentable
	}
	if _, err := pipeline.Classify(filename); err != nil {
		return err
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	staged := filepath.Join(s.uploadDir, fmt.Sprintf("agent_%d_%s", id, filepath.Base(filename)))
	f, err := os.Create(staged)
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(staged)
		return fmt.Errorf("stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(staged)
		return err
	}
	defer os.Remove(staged)

	done := make(chan error, 1)
	if err := s.ingest.Submit(func() {
		done <- s.rag.Engine().ProcessDocument(ctx, staged, agent.CollectionID())
	}); err != nil {
		return fmt.Errorf("schedule ingestion: %w", err)
	}

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	// Indexed content changed, so cached answers may be stale.
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx)
	}
	return nil
}

// DocumentContext returns the raw retrieval snippets for a question against
// the agent's collection.
func (s *AgentService) DocumentContext(ctx context.Context, id uint64, query string) ([]*model.ContextSnippet, error) {
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if agent.Type != model.AgentTypeRAG {
		return nil, ErrNotDocumentable
	}
	return s.rag.Engine().Context(ctx, agent.CollectionID(), query)
}

// Stats aggregates service-level statistics.
func (s *AgentService) Stats(ctx context.Context) (map[string]any, error) {
	total, agents, err := s.store.Agents().List(ctx, 0, 10000)
	if err != nil {
		return nil, err
	}

	byType := make(map[string]int)
	indexed := 0
	for _, agent := range agents {
		byType[string(agent.Type)]++
		if agent.Type == model.AgentTypeRAG {
			if count, err := s.rag.Engine().CollectionStats(ctx, agent.CollectionID()); err == nil && count > 0 {
				indexed++
			}
		}
	}

	stats := map[string]any{
		"total_agents":       total,
		"agents_by_type":     byType,
		"agents_with_index":  indexed,
		"ingest_workers":     s.ingest.Cap(),
		"running_ingestions": s.ingest.Running(),
	}
	if s.cache != nil {
		if cacheStats, err := s.cache.Stats(ctx); err == nil {
			stats["query_cache"] = cacheStats
		}
	}
	return stats, nil
}
