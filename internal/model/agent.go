// Package model defines the data models for agent-studio.
package model

import (
	"fmt"
	"strings"
	"time"
)

// AgentType identifies the behavior profile of an agent.
type AgentType string

const (
	// AgentTypeRAG answers questions from uploaded documents.
	AgentTypeRAG AgentType = "rag"
	// AgentTypeConversational holds free-form conversations.
	AgentTypeConversational AgentType = "conversational"
	// AgentTypeToolCalling dispatches prompts against registered tools.
	AgentTypeToolCalling AgentType = "tool_calling"
	// AgentTypeCoding generates and troubleshoots code.
	AgentTypeCoding AgentType = "coding"
)

// ParseAgentType parses a case-insensitive agent type string.
func ParseAgentType(s string) (AgentType, error) {
	switch AgentType(strings.ToLower(strings.TrimSpace(s))) {
	case AgentTypeRAG:
		return AgentTypeRAG, nil
	case AgentTypeConversational:
		return AgentTypeConversational, nil
	case AgentTypeToolCalling:
		return AgentTypeToolCalling, nil
	case AgentTypeCoding:
		return AgentTypeCoding, nil
	default:
		return "", fmt.Errorf("unknown agent type: %s", s)
	}
}

// AgentTypes returns all supported agent types.
func AgentTypes() []AgentType {
	return []AgentType{AgentTypeRAG, AgentTypeConversational, AgentTypeToolCalling, AgentTypeCoding}
}

// AgentStatus identifies whether an agent accepts queries.
type AgentStatus string

const (
	AgentStatusActive   AgentStatus = "active"
	AgentStatusInactive AgentStatus = "inactive"
)

// ParseAgentStatus parses a case-insensitive agent status string.
func ParseAgentStatus(s string) (AgentStatus, error) {
	switch AgentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case AgentStatusActive:
		return AgentStatusActive, nil
	case AgentStatusInactive:
		return AgentStatusInactive, nil
	default:
		return "", fmt.Errorf("unknown agent status: %s", s)
	}
}

// Agent represents a configured agent.
type Agent struct {
	ID            uint64         `json:"id" gorm:"primaryKey;autoIncrement"`
	Name          string         `json:"name" gorm:"size:128;not null;index"`
	Type          AgentType      `json:"type" gorm:"size:32;not null"`
	Status        AgentStatus    `json:"status" gorm:"size:16;not null;default:active"`
	Configuration map[string]any `json:"configuration" gorm:"serializer:json"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName returns the table name of the agent model.
func (a *Agent) TableName() string {
	return "agents"
}

// CollectionID returns the vector collection name backing this agent.
func (a *Agent) CollectionID() string {
	return fmt.Sprintf("agent_%d", a.ID)
}

// IsActive reports whether the agent accepts queries.
func (a *Agent) IsActive() bool {
	return a.Status == AgentStatusActive
}
