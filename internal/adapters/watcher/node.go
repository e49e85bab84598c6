package watcher

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depex/internal/adapters/logger" //nolint:depguard // Watch errors go through the shared logger
	"go.trai.ch/depex/internal/core/ports"
)

// NodeID is the unique identifier for the watcher factory Graft node.
const NodeID graft.ID = "adapter.watcher"

func init() {
	graft.Register(graft.Node[ports.WatcherFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.WatcherFactory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func() (ports.Watcher, error) {
				w, err := NewWatcher(log.Error)
				if err != nil {
					return nil, err
				}
				return w, nil
			}, nil
		},
	})
}
