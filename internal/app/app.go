// Package app implements the application layer for depex.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/depex/internal/engine/detector"
	"go.trai.ch/depex/internal/engine/state"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	store         ports.StateStore
	loader        ports.ManifestLoader
	executor      ports.Executor
	fingerprinter ports.Fingerprinter
	detector      *detector.Detector
	logger        ports.Logger
	renderer      ports.Renderer
	watchers      ports.WatcherFactory

	statePath string
	stdout    io.Writer
}

// New creates a new App instance.
func New(
	store ports.StateStore,
	loader ports.ManifestLoader,
	executor ports.Executor,
	fingerprinter ports.Fingerprinter,
	det *detector.Detector,
	log ports.Logger,
	renderer ports.Renderer,
	watchers ports.WatcherFactory,
) *App {
	return &App{
		store:         store,
		loader:        loader,
		executor:      executor,
		fingerprinter: fingerprinter,
		detector:      det,
		logger:        log,
		renderer:      renderer,
		watchers:      watchers,
		statePath:     domain.DefaultStatePath(),
		stdout:        os.Stdout,
	}
}

// WithOutput sets where reports such as plans are printed.
func (a *App) WithOutput(w io.Writer) *App {
	a.stdout = w
	return a
}

// Settings holds the global options shared by every command.
type Settings struct {
	// StatePath is the location of the state record. Empty keeps the default.
	StatePath string
	// LogFormat is "pretty" or "json". Empty keeps the current format.
	LogFormat string
}

type formatSetter interface {
	SetFormat(format string) error
}

// Configure applies global settings before a command runs.
func (a *App) Configure(s Settings) error {
	if s.StatePath != "" {
		a.statePath = s.StatePath
	}
	if s.LogFormat != "" {
		if f, ok := a.logger.(formatSetter); ok {
			if err := f.SetFormat(s.LogFormat); err != nil {
				return err
			}
		}
	}
	return nil
}

// StatePath returns the configured state record location.
func (a *App) StatePath() string {
	return a.statePath
}

// handle creates a fresh handle on the configured record. Every operation
// gets its own handle.
func (a *App) handle() *state.Handle {
	return state.NewHandle(a.store, a.statePath)
}

// Init creates an empty state record.
func (a *App) Init(ctx context.Context, force bool) error {
	if err := a.handle().Initialize(ctx, force); err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("initialized %s", a.statePath))
	return nil
}

// Add declares a command, or replaces the invocation of an existing one.
func (a *App) Add(ctx context.Context, name string, argv []string) error {
	err := state.With(ctx, a.handle(), func(st *domain.State) error {
		return st.AddCommand(name, argv)
	})
	if err != nil {
		return zerr.Wrap(err, "failed to declare command")
	}
	a.logger.Info(fmt.Sprintf("declared command %q", name))
	return nil
}

// Reads adds paths to the read set of the named command.
func (a *App) Reads(ctx context.Context, name string, paths []string) error {
	err := state.With(ctx, a.handle(), func(st *domain.State) error {
		return st.AddReads(name, paths...)
	})
	if err != nil {
		return zerr.Wrap(err, "failed to declare reads")
	}
	a.logger.Info(fmt.Sprintf("command %q reads %d more path(s)", name, len(paths)))
	return nil
}

// Writes adds paths to the write set of the named command.
func (a *App) Writes(ctx context.Context, name string, paths []string) error {
	err := state.With(ctx, a.handle(), func(st *domain.State) error {
		return st.AddWrites(name, paths...)
	})
	if err != nil {
		return zerr.Wrap(err, "failed to declare writes")
	}
	a.logger.Info(fmt.Sprintf("command %q writes %d more path(s)", name, len(paths)))
	return nil
}

// Apply declares every command of the manifest at path in one scope.
func (a *App) Apply(ctx context.Context, path string) error {
	if path == "" {
		path = domain.ManifestFileName
	}

	manifest, err := a.loader.Load(path)
	if err != nil {
		return err
	}

	err = state.With(ctx, a.handle(), manifest.Apply)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to apply manifest"), "path", path)
	}
	a.logger.Info(fmt.Sprintf("applied %d command(s) from %s", len(manifest.Commands), path))
	return nil
}
