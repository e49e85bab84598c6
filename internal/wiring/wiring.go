// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/depex/internal/adapters/config"
	_ "go.trai.ch/depex/internal/adapters/fs"
	_ "go.trai.ch/depex/internal/adapters/linear"
	_ "go.trai.ch/depex/internal/adapters/logger"
	_ "go.trai.ch/depex/internal/adapters/shell"
	_ "go.trai.ch/depex/internal/adapters/statefile"
	_ "go.trai.ch/depex/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/depex/internal/app"
	_ "go.trai.ch/depex/internal/engine/detector"
)
