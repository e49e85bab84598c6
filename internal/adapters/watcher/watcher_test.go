package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depex/internal/adapters/watcher"
	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
)

func startWatcher(t *testing.T, ctx context.Context, paths ...string) <-chan ports.WatchEvent {
	t.Helper()

	w, err := watcher.NewWatcher(func(err error) { t.Logf("watch error: %v", err) })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, w.Start(ctx, paths))

	out := make(chan ports.WatchEvent, 100)
	go func() {
		defer close(out)
		for ev := range w.Events() {
			out <- ev
		}
	}()
	return out
}

func TestWatcher_ReportsDeclaredPaths(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("file.txt", []byte("v1"), domain.FilePerm))

	events := startWatcher(t, t.Context(), "file.txt", filepath.Join("missing", "x.txt"))

	require.NoError(t, os.WriteFile("unrelated.txt", []byte("noise"), domain.FilePerm))
	require.NoError(t, os.WriteFile("file.txt", []byte("v2"), domain.FilePerm))

	select {
	case ev := <-events:
		assert.Equal(t, "file.txt", ev.Path, "events carry the declared path")
		assert.Contains(t, []ports.WatchOp{ports.OpWrite, ports.OpCreate}, ev.Operation)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the declared file")
	}
}

func TestWatcher_ReplaceByRename(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(target, []byte("v1"), domain.FilePerm))

	events := startWatcher(t, t.Context(), target)

	tmp := filepath.Join(dir, "file.txt.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), domain.FilePerm))
	require.NoError(t, os.Rename(tmp, target))

	select {
	case ev := <-events:
		assert.Equal(t, target, ev.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the replaced file")
	}
}

func TestWatcher_StopsWithContext(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(t.Context())

	events := startWatcher(t, ctx, filepath.Join(dir, "file.txt"))
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "events end once the context is cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("events did not end")
	}
}
