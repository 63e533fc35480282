// Package biz implements the business logic of the agent studio: agent
// lifecycle management and per-type query runtimes.
package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/agent-studio/internal/model"
	"github.com/kart-io/agent-studio/pkg/llm"
)

// RunContext carries per-query inputs into a runtime.
type RunContext struct {
	// Agent is the agent the query addresses.
	Agent *model.Agent

	// Language selects the target language for coding agents.
	Language string

	// Mode selects the coding prompt (generate, troubleshoot, explain).
	Mode string
}

// Runtime processes a query for one agent type.
type Runtime interface {
	Process(ctx context.Context, prompt string, rc *RunContext) (*model.QueryResult, error)
}

// RuntimeFactory builds the runtime matching an agent type.
type RuntimeFactory struct {
	chat llm.ChatProvider
	rag  *RAGRuntime
}

// NewRuntimeFactory creates a factory producing runtimes backed by the given
// chat provider. ragRuntime handles the document-aware agent type.
func NewRuntimeFactory(chat llm.ChatProvider, ragRuntime *RAGRuntime) *RuntimeFactory {
	return &RuntimeFactory{chat: chat, rag: ragRuntime}
}

// ForType returns the runtime for the agent type.
func (f *RuntimeFactory) ForType(agentType model.AgentType) (Runtime, error) {
	switch agentType {
	case model.AgentTypeRAG:
		return f.rag, nil
	case model.AgentTypeConversational:
		return &ConversationalRuntime{chat: f.chat}, nil
	case model.AgentTypeCoding:
		return &CodingRuntime{chat: f.chat}, nil
	case model.AgentTypeToolCalling:
		return NewToolCallingRuntime(f.chat), nil
	default:
		return nil, fmt.Errorf("no runtime for agent type %q", agentType)
	}
}
