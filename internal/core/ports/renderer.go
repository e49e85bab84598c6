package ports

import (
	"context"
	"time"
)

// Renderer is the abstraction for output rendering.
// It decouples span collection from presentation.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Stop flushes any buffered output.
	Stop() error

	// OnPlanEmit is called once the scheduler knows which commands will run.
	OnPlanEmit(commands []string, planID string)

	// OnTaskStart is called when a command begins execution.
	OnTaskStart(spanID, name string, startTime time.Time)

	// OnTaskLog is called when a command emits output.
	// data may contain partial lines.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a command finishes. err is nil on success.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
