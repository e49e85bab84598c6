package app

import "go.trai.ch/depex/internal/core/ports"

// Components holds what the CLI entry point needs from the dependency graph.
type Components struct {
	App    *App
	Logger ports.Logger
}
