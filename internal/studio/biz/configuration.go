package biz

import (
	"github.com/kart-io/agent-studio/internal/model"
	"github.com/kart-io/agent-studio/internal/pipeline"
)

// DefaultConfiguration returns the configuration applied when an agent is
// created or retyped without an explicit one.
func DefaultConfiguration(agentType model.AgentType) map[string]any {
	switch agentType {
	case model.AgentTypeRAG:
		var formats []string
		for _, exts := range pipeline.SupportedFormats() {
			formats = append(formats, exts...)
		}
		return map[string]any{
			"description":       "A document-aware AI assistant that can answer questions based on uploaded files.",
			"supported_formats": formats,
			"max_tokens":        1000,
		}
	case model.AgentTypeConversational:
		return map[string]any{
			"description":     "A general-purpose AI assistant for natural conversations.",
			"prompt_template": defaultConversationalTemplate,
		}
	case model.AgentTypeToolCalling:
		tools := make([]map[string]any, 0, 2)
		for _, tool := range builtinTools() {
			tools = append(tools, map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
			})
		}
		return map[string]any{
			"description": "An AI assistant that can use external tools and APIs to help accomplish tasks.",
			"tools":       tools,
		}
	case model.AgentTypeCoding:
		return map[string]any{
			"description": "An expert coding assistant that generates clean, formatted code.",
			"supported_languages": []string{
				"python", "javascript", "typescript", "java", "c++", "go", "rust",
			},
			"features": []string{
				"Code Generation",
				"Error Troubleshooting",
				"Code Explanation",
				"Best Practices",
				"Code Review",
				"Performance Tips",
			},
			"prompt_templates": map[string]string{
				CodingModeGenerate:     codingTemplates[CodingModeGenerate],
				CodingModeTroubleshoot: codingTemplates[CodingModeTroubleshoot],
				CodingModeExplain:      codingTemplates[CodingModeExplain],
			},
		}
	default:
		return map[string]any{}
	}
}
