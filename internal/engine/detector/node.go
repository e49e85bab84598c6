package detector

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depex/internal/adapters/fs" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depex/internal/core/ports"
)

// NodeID is the unique identifier for the change detector Graft node.
const NodeID graft.ID = "engine.detector"

func init() {
	graft.Register(graft.Node[*Detector]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.HasherNodeID},
		Run: func(ctx context.Context) (*Detector, error) {
			fp, err := graft.Dep[ports.Fingerprinter](ctx)
			if err != nil {
				return nil, err
			}
			return New(fp, 0), nil
		},
	})
}
