package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.trai.ch/depex/internal/adapters/watcher"
	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/depex/internal/engine/state"
)

// WatchOptions configuration for the Watch method.
type WatchOptions struct {
	Run RunOptions
	// Debounce is the quiet period that ends a batch of file events.
	Debounce time.Duration
}

// watchSet is a running watcher together with the paths it was started on.
type watchSet struct {
	paths   []string
	watcher ports.Watcher
}

// Watch runs once, then re-runs after every batch of changes to a declared
// read path until ctx is cancelled. Failed runs are logged and watching
// continues. The declared read paths are reloaded after every run, so
// declarations made while watching take effect with the next run.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	window := opts.Debounce
	if window <= 0 {
		window = watcher.DefaultDebounceWindow
	}

	// A pending batch already triggers a full rescan, so extra batches can be dropped.
	batches := make(chan []string, 1)
	debouncer := watcher.NewDebouncer(window, func(changed []string) {
		select {
		case batches <- changed:
		default:
		}
	})
	defer debouncer.Stop()

	current, err := a.rewatch(ctx, nil, debouncer)
	if err != nil {
		return err
	}
	defer func() {
		_ = current.watcher.Stop()
	}()

	a.runAndLog(ctx, opts.Run)
	current = a.rewatchAndLog(ctx, current, debouncer)
	a.logger.Info(fmt.Sprintf("watching %d path(s), press Ctrl-C to stop", len(current.paths)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-batches:
			a.logger.Info("changed: " + strings.Join(changed, ", "))
			a.runAndLog(ctx, opts.Run)
			current = a.rewatchAndLog(ctx, current, debouncer)
		}
	}
}

// rewatch reloads the declared read paths and starts a new watcher when they
// differ from the ones current watches. The previous watcher is stopped only
// once its replacement is running.
func (a *App) rewatch(ctx context.Context, current *watchSet, debouncer *watcher.Debouncer) (*watchSet, error) {
	var paths []string
	err := state.With(ctx, a.handle(), func(st *domain.State) error {
		paths = st.ReadPaths()
		return nil
	})
	if err != nil {
		return current, err
	}
	if current != nil && slices.Equal(paths, current.paths) {
		return current, nil
	}

	w, err := a.watchers()
	if err != nil {
		return current, err
	}
	if err := w.Start(ctx, paths); err != nil {
		_ = w.Stop()
		return current, err
	}
	if current != nil {
		_ = current.watcher.Stop()
	}

	go func() {
		for ev := range w.Events() {
			debouncer.Add(ev.Path)
		}
	}()
	return &watchSet{paths: paths, watcher: w}, nil
}

// rewatchAndLog keeps the current watcher when the watch set cannot be rebuilt.
func (a *App) rewatchAndLog(ctx context.Context, current *watchSet, debouncer *watcher.Debouncer) *watchSet {
	next, err := a.rewatch(ctx, current, debouncer)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Error(err)
		}
		return current
	}
	if next != current && ctx.Err() == nil {
		a.logger.Info(fmt.Sprintf("declarations changed, now watching %d path(s)", len(next.paths)))
	}
	return next
}

func (a *App) runAndLog(ctx context.Context, opts RunOptions) {
	if _, err := a.run(ctx, opts); err != nil && ctx.Err() == nil {
		a.logger.Error(err)
	}
}
