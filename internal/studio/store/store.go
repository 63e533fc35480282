package store

import (
	"context"

	"github.com/kart-io/agent-studio/internal/model"
)

// Factory defines the factory interface for creating stores.
type Factory interface {
	Agents() AgentStore
	AutoMigrate() error
	Close() error
}

// AgentStore defines the agent storage interface.
type AgentStore interface {
	Create(ctx context.Context, agent *model.Agent) error
	Update(ctx context.Context, agent *model.Agent) error
	Delete(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64) (*model.Agent, error)
	List(ctx context.Context, offset, limit int) (int64, []*model.Agent, error)
}
