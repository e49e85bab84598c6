package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depex/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/depex/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/depex/internal/adapters/linear"    //nolint:depguard // Wired in app layer
	"go.trai.ch/depex/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/depex/internal/adapters/shell"     //nolint:depguard // Wired in app layer
	"go.trai.ch/depex/internal/adapters/statefile" //nolint:depguard // Wired in app layer
	"go.trai.ch/depex/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/depex/internal/engine/detector"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			statefile.NodeID,
			config.NodeID,
			shell.NodeID,
			fs.HasherNodeID,
			detector.NodeID,
			logger.NodeID,
			linear.NodeID,
			watcher.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	store, err := graft.Dep[ports.StateStore](ctx)
	if err != nil {
		return nil, err
	}

	loader, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}

	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}

	fingerprinter, err := graft.Dep[ports.Fingerprinter](ctx)
	if err != nil {
		return nil, err
	}

	det, err := graft.Dep[*detector.Detector](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	renderer, err := graft.Dep[ports.Renderer](ctx)
	if err != nil {
		return nil, err
	}

	watchers, err := graft.Dep[ports.WatcherFactory](ctx)
	if err != nil {
		return nil, err
	}

	return New(store, loader, executor, fingerprinter, det, log, renderer, watchers), nil
}
