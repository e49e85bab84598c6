package watcher

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"maps"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 100

// Watcher implements ports.Watcher with fsnotify. Files are watched through
// their parent directories so that editors replacing a file by rename are
// still noticed.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	events    chan ports.WatchEvent
	errs      func(error)

	mu       sync.RWMutex
	declared map[string]string // absolute path -> declared path
}

// NewWatcher creates a new file system watcher. Asynchronous watch errors
// are handed to onError, which may be nil.
func NewWatcher(onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(domain.Classify(domain.ErrWatchFailed, err), "failed to create watcher")
	}
	return &Watcher{
		fsWatcher: fsw,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
		errs:      onError,
		declared:  make(map[string]string),
	}, nil
}

// Start begins watching paths. Directories that do not exist yet are skipped.
func (w *Watcher) Start(ctx context.Context, paths []string) error {
	dirs := make(map[string]struct{})

	w.mu.Lock()
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.mu.Unlock()
			return zerr.With(zerr.Wrap(domain.Classify(domain.ErrWatchFailed, err), "failed to resolve path"), "path", p)
		}
		w.declared[abs] = p
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	w.mu.Unlock()

	for _, dir := range slices.Sorted(maps.Keys(dirs)) {
		if err := w.fsWatcher.Add(dir); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return zerr.With(zerr.Wrap(domain.Classify(domain.ErrWatchFailed, err), "failed to watch directory"), "dir", dir)
		}
	}

	go w.processEvents(ctx)

	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator over changes to declared paths. It ends when
// the watcher stops or the context passed to Start is cancelled.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			watchEvent, ok := w.convertEvent(event)
			if !ok {
				continue
			}

			select {
			case w.events <- watchEvent:
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.errs != nil {
				w.errs(zerr.Wrap(domain.Classify(domain.ErrWatchFailed, err), "file system watch error"))
			}
		}
	}
}

// convertEvent maps an fsnotify event on a declared path to a ports.WatchEvent.
func (w *Watcher) convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	w.mu.RLock()
	declared, ok := w.declared[filepath.Clean(event.Name)]
	w.mu.RUnlock()
	if !ok {
		return ports.WatchEvent{}, false
	}

	var op ports.WatchOp
	switch {
	case event.Has(fsnotify.Write):
		op = ports.OpWrite
	case event.Has(fsnotify.Create):
		op = ports.OpCreate
	case event.Has(fsnotify.Remove):
		op = ports.OpRemove
	case event.Has(fsnotify.Rename):
		op = ports.OpRename
	default:
		return ports.WatchEvent{}, false
	}

	return ports.WatchEvent{Path: declared, Operation: op}, true
}
