package biz

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/agent-studio/internal/model"
	"github.com/kart-io/agent-studio/pkg/llm"
)

// Tool is a builtin function the tool-calling runtime can invoke.
type Tool struct {
	Name        string
	Description string
	Fn          func(args []float64) (float64, error)
}

func builtinTools() []Tool {
	return []Tool{
		{
			Name:        "add",
			Description: "add(a, b): returns the sum of two numbers",
			Fn: func(args []float64) (float64, error) {
				if len(args) != 2 {
					return 0, fmt.Errorf("add expects 2 arguments, got %d", len(args))
				}
				return args[0] + args[1], nil
			},
		},
		{
			Name:        "multiply",
			Description: "multiply(a, b): returns the product of two numbers",
			Fn: func(args []float64) (float64, error) {
				if len(args) != 2 {
					return 0, fmt.Errorf("multiply expects 2 arguments, got %d", len(args))
				}
				return args[0] * args[1], nil
			},
		},
	}
}

// toolCallRE matches a tool invocation the model was instructed to emit,
// e.g. TOOL: multiply(3, 4).
var toolCallRE = regexp.MustCompile(`(?m)^TOOL:\s*(\w+)\(([^)]*)\)`)

// ToolCallingRuntime folds the builtin tool descriptions into the prompt and
// runs one call/observe round when the model requests a tool.
type ToolCallingRuntime struct {
	chat  llm.ChatProvider
	tools map[string]Tool
}

func NewToolCallingRuntime(chat llm.ChatProvider) *ToolCallingRuntime {
	tools := make(map[string]Tool)
	for _, tool := range builtinTools() {
		tools[tool.Name] = tool
	}
	return &ToolCallingRuntime{chat: chat, tools: tools}
}

func (r *ToolCallingRuntime) Process(ctx context.Context, prompt string, _ *RunContext) (*model.QueryResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	var sb strings.Builder
	sb.WriteString("You are an AI assistant with access to the following tools:\n")
	for _, tool := range builtinTools() {
		fmt.Fprintf(&sb, "- %s\n", tool.Description)
	}
	sb.WriteString("\nWhen a tool is needed, reply with a single line of the form TOOL: name(arg1, arg2) ")
	sb.WriteString("and nothing else. Otherwise answer the request directly.\n\n")
	fmt.Fprintf(&sb, "Request: %s", prompt)

	response, err := r.chat.Complete(ctx, []llm.ContentBlock{llm.TextBlock(sb.String())})
	if err != nil {
		return nil, err
	}

	metadata := responseMetadata(response)

	match := toolCallRE.FindStringSubmatch(response.Content)
	if match == nil {
		return &model.QueryResult{Answer: response.Content, Metadata: metadata}, nil
	}

	name, rawArgs := match[1], match[2]
	result, err := r.invoke(name, rawArgs)
	if err != nil {
		logger.Warnf("Tool call %s(%s) failed: %v", name, rawArgs, err)
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	metadata["tool"] = name
	metadata["tool_result"] = result

	followUp := fmt.Sprintf(
		"The tool %s(%s) returned %v. Using that result, answer the original request:\n\n%s",
		name, rawArgs, result, prompt)
	final, err := r.chat.Complete(ctx, []llm.ContentBlock{llm.TextBlock(followUp)})
	if err != nil {
		return nil, err
	}
	return &model.QueryResult{Answer: final.Content, Metadata: metadata}, nil
}

func (r *ToolCallingRuntime) invoke(name, rawArgs string) (float64, error) {
	tool, ok := r.tools[name]
	if !ok {
		return 0, fmt.Errorf("unknown tool")
	}

	var args []float64
	for _, part := range strings.Split(rawArgs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid argument %q", part)
		}
		args = append(args, value)
	}
	return tool.Fn(args)
}
