// Package state provides scoped, reference-counted access to the persisted record.
package state

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/zerr"
)

// Handle owns the in-memory state for one record on disk.
//
// Nested Open calls share a single instance. The record is loaded on the
// outermost Open and written back on the matching Close, and only if the
// state changed in between.
type Handle struct {
	store ports.StateStore
	path  string

	mu      sync.Mutex
	depth   int
	current *domain.State
	flushed uint64
}

// NewHandle creates a Handle for the record at path.
func NewHandle(store ports.StateStore, path string) *Handle {
	return &Handle{store: store, path: path}
}

// Path returns the location of the record.
func (h *Handle) Path() string {
	return h.path
}

// Depth returns the number of Open calls not yet matched by Close.
func (h *Handle) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.depth
}

// Open returns the shared state, loading it from disk if the handle is not
// open yet.
func (h *Handle) Open(ctx context.Context) (*domain.State, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.depth == 0 {
		st, err := h.store.Load(ctx, h.path)
		if err != nil {
			return nil, err
		}
		h.current = st
		h.flushed = st.Revision()
	}
	h.depth++
	return h.current, nil
}

// Close releases one Open. The outermost Close persists pending changes and
// drops the in-memory state.
func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.depth == 0 {
		return zerr.With(zerr.Wrap(domain.ErrHandleNotOpen, "failed to close state"), "path", h.path)
	}
	h.depth--
	if h.depth > 0 {
		return nil
	}

	st := h.current
	h.current = nil
	if st.Revision() == h.flushed {
		return nil
	}
	return h.store.Save(ctx, h.path, st)
}

// Checkpoint persists pending changes while keeping the handle open.
func (h *Handle) Checkpoint(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.depth == 0 {
		return zerr.With(zerr.Wrap(domain.ErrHandleNotOpen, "failed to checkpoint state"), "path", h.path)
	}
	rev := h.current.Revision()
	if rev == h.flushed {
		return nil
	}
	if err := h.store.Save(ctx, h.path, h.current); err != nil {
		return err
	}
	h.flushed = rev
	return nil
}

// Initialize writes an empty record. It is rejected while the handle is open.
func (h *Handle) Initialize(ctx context.Context, force bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.depth > 0 {
		return zerr.With(zerr.Wrap(domain.ErrHandleBusy, "failed to initialize state"), "path", h.path)
	}
	return h.store.Create(ctx, h.path, force)
}

// With opens h, runs fn on the shared state and closes h again, even when fn
// fails.
func With(ctx context.Context, h *Handle, fn func(*domain.State) error) (err error) {
	st, err := h.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := h.Close(ctx); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(st)
}
