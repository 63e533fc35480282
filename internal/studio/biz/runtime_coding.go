package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/agent-studio/internal/model"
	"github.com/kart-io/agent-studio/pkg/llm"
)

// Coding prompt modes.
const (
	CodingModeGenerate     = "generate"
	CodingModeTroubleshoot = "troubleshoot"
	CodingModeExplain      = "explain"
)

const defaultCodingLanguage = "python"

var codingTemplates = map[string]string{
	CodingModeGenerate: "You are an expert {language} developer. Please write clean, well-documented " +
		"{language} code in response to the following request. Include comments explaining " +
		"key parts of the code and best practices used:\n\n{input}",
	CodingModeTroubleshoot: "You are an expert {language} developer helping to troubleshoot code. " +
		"Please analyze the following error and provide a detailed explanation " +
		"and solution with corrected code:\n\n{input}",
	CodingModeExplain: "You are an expert {language} developer. Please analyze the following code " +
		"and provide a detailed explanation of how it works, including best practices " +
		"and potential improvements:\n\n{input}",
}

// CodingRuntime generates, explains and troubleshoots code. The response's
// fenced code blocks are extracted into metadata for client-side display.
type CodingRuntime struct {
	chat llm.ChatProvider
}

func (r *CodingRuntime) Process(ctx context.Context, prompt string, rc *RunContext) (*model.QueryResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	language := defaultCodingLanguage
	mode := ""
	if rc != nil {
		if rc.Language != "" {
			language = rc.Language
		}
		mode = rc.Mode
	}
	if rc != nil && rc.Agent != nil && !languageSupported(rc.Agent.Configuration, language) {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
	if mode == "" {
		// Error reports route to troubleshooting without an explicit mode.
		if strings.Contains(strings.ToLower(prompt), "error") {
			mode = CodingModeTroubleshoot
		} else {
			mode = CodingModeGenerate
		}
	}

	template, ok := codingTemplates[mode]
	if !ok {
		return nil, fmt.Errorf("unsupported coding mode: %s", mode)
	}
	formatted := strings.ReplaceAll(template, "{language}", language)
	formatted = strings.ReplaceAll(formatted, "{input}", prompt)

	response, err := r.chat.Complete(ctx, []llm.ContentBlock{llm.TextBlock(formatted)})
	if err != nil {
		return nil, err
	}

	metadata := responseMetadata(response)
	metadata["language"] = language
	metadata["mode"] = mode
	if blocks := extractCodeBlocks(response.Content); len(blocks) > 0 {
		metadata["code_blocks"] = blocks
	}

	return &model.QueryResult{Answer: response.Content, Metadata: metadata}, nil
}

// languageSupported checks the agent's supported_languages list. Agents
// without the list accept any language. The list arrives as []string when set
// in code and []any after a JSON round-trip through the database.
func languageSupported(configuration map[string]any, language string) bool {
	raw, ok := configuration["supported_languages"]
	if !ok {
		return true
	}
	switch list := raw.(type) {
	case []string:
		for _, entry := range list {
			if strings.EqualFold(entry, language) {
				return true
			}
		}
	case []any:
		for _, entry := range list {
			if s, ok := entry.(string); ok && strings.EqualFold(s, language) {
				return true
			}
		}
	default:
		return true
	}
	return false
}

// extractCodeBlocks collects the contents of ``` fenced blocks.
func extractCodeBlocks(text string) []string {
	var blocks []string
	var current []string
	inBlock := false

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "```") {
			if inBlock {
				blocks = append(blocks, strings.Join(current, "\n"))
				current = nil
			}
			inBlock = !inBlock
			continue
		}
		if inBlock {
			current = append(current, line)
		}
	}
	return blocks
}
