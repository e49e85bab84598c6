// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/depex/internal/core/domain"
)

// Executor defines the interface for running a declared command.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command's argument vector and waits for it to exit.
	//
	// Output is streamed to stdout and stderr while the process runs.
	// It returns an error if the process cannot be started or exits unsuccessfully.
	Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error
}
