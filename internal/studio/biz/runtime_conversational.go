package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/agent-studio/internal/model"
	"github.com/kart-io/agent-studio/pkg/llm"
)

const defaultConversationalTemplate = "You are a helpful AI assistant. Please respond to the following message:\n\n{input}"

// ConversationalRuntime answers free-form prompts, optionally through a
// prompt template stored in the agent configuration.
type ConversationalRuntime struct {
	chat llm.ChatProvider
}

func (r *ConversationalRuntime) Process(ctx context.Context, prompt string, rc *RunContext) (*model.QueryResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	template := defaultConversationalTemplate
	if rc != nil && rc.Agent != nil {
		if custom, ok := rc.Agent.Configuration["prompt_template"].(string); ok && custom != "" {
			template = custom
		}
	}
	formatted := strings.ReplaceAll(template, "{input}", prompt)

	response, err := r.chat.Complete(ctx, []llm.ContentBlock{llm.TextBlock(formatted)})
	if err != nil {
		return nil, err
	}
	return &model.QueryResult{
		Answer:   response.Content,
		Metadata: responseMetadata(response),
	}, nil
}

func responseMetadata(response *llm.GenerateResponse) map[string]any {
	metadata := map[string]any{"model": response.Model}
	if response.Usage != nil {
		metadata["usage"] = response.Usage
	}
	return metadata
}
