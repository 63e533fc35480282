package studio

import (
	"fmt"

	"github.com/kart-io/agent-studio/pkg/app"
)

const (
	appName        = "agent-studio"
	appDescription = `Agent Studio

A backend service for building and running AI agents.

This server provides:
  - Agent lifecycle management (create, update, delete, query)
  - Document ingestion with format-aware extraction and adaptive chunking
  - Vector-indexed retrieval and RAG-based question answering
  - Conversational, coding and tool-calling agent runtimes`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

func printBanner(_ *Options) {
	fmt.Printf("Starting %s...\n", appName)
}
