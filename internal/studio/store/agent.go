package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/agent-studio/internal/model"
)

type agents struct {
	db *gorm.DB
}

func newAgents(db *gorm.DB) *agents {
	return &agents{db}
}

// Create creates a new agent.
func (a *agents) Create(ctx context.Context, agent *model.Agent) error {
	return a.db.WithContext(ctx).Create(agent).Error
}

// Update updates an existing agent.
func (a *agents) Update(ctx context.Context, agent *model.Agent) error {
	return a.db.WithContext(ctx).Save(agent).Error
}

// Delete deletes an agent by ID.
func (a *agents) Delete(ctx context.Context, id uint64) error {
	return a.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Agent{}).Error
}

// Get retrieves an agent by ID.
func (a *agents) Get(ctx context.Context, id uint64) (*model.Agent, error) {
	var agent model.Agent
	if err := a.db.WithContext(ctx).Where("id = ?", id).First(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// List lists agents with pagination.
func (a *agents) List(ctx context.Context, offset, limit int) (int64, []*model.Agent, error) {
	var count int64
	var list []*model.Agent

	if err := a.db.WithContext(ctx).Model(&model.Agent{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if err := a.db.WithContext(ctx).Offset(offset).Limit(limit).Order("id").Find(&list).Error; err != nil {
		return 0, nil, err
	}
	return count, list, nil
}
