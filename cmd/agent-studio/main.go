// Package main is the entry point for the Agent Studio server.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/agent-studio/internal/studio"
)

func main() {
	studio.NewApp().Run()
}
