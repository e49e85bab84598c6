package app_test

import (
	"context"
	"iter"
	"os"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depex/internal/app"
	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/depex/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func eventsFrom(ch <-chan ports.WatchEvent) iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for ev := range ch {
			if !yield(ev) {
				return
			}
		}
	}
}

func TestApp_Watch(t *testing.T) {
	workspace(t)

	synctest.Test(t, func(t *testing.T) {
		var w *mocks.MockWatcher
		f := newFixture(t, func() (ports.Watcher, error) { return w, nil })
		w = mocks.NewMockWatcher(f.ctrl)

		declareCorpus(t, f.app)
		writeFile(t, "file.txt", "corpus v1")

		events := make(chan ports.WatchEvent)
		w.EXPECT().Start(gomock.Any(), []string{"file.txt", "out.txt"}).Return(nil)
		w.EXPECT().Events().Return(eventsFrom(events))
		w.EXPECT().Stop().Return(nil)

		gomock.InOrder(
			f.expectCommand("readcorpus", "", "out.txt", "v1"),
			f.expectCommand("visualize", "", "out.png", "png v1"),
			f.expectCommand("readcorpus", "", "out.txt", "v2"),
			f.expectCommand("visualize", "", "out.png", "png v2"),
		)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() {
			done <- f.app.Watch(ctx, app.WatchOptions{Debounce: 50 * time.Millisecond})
		}()

		// Initial run completes, then the loop waits for events.
		synctest.Wait()
		assert.Equal(t, "watching 2 path(s), press Ctrl-C to stop", f.lastInfo())

		writeFile(t, "file.txt", "corpus v2")
		events <- ports.WatchEvent{Path: "file.txt", Operation: ports.OpWrite}
		events <- ports.WatchEvent{Path: "file.txt", Operation: ports.OpWrite}

		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		cancel()
		require.NoError(t, <-done)
		close(events)

		f.mu.Lock()
		assert.Contains(t, f.infos, "changed: file.txt")
		f.mu.Unlock()
	})
}

func TestApp_WatchKeepsGoingAfterFailure(t *testing.T) {
	workspace(t)

	synctest.Test(t, func(t *testing.T) {
		var w *mocks.MockWatcher
		f := newFixture(t, func() (ports.Watcher, error) { return w, nil })
		w = mocks.NewMockWatcher(f.ctrl)

		declareCorpus(t, f.app)
		writeFile(t, "file.txt", "corpus v1")

		events := make(chan ports.WatchEvent)
		w.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil)
		w.EXPECT().Events().Return(eventsFrom(events))
		w.EXPECT().Stop().Return(nil)

		f.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
			assert.ErrorIs(t, err, domain.ErrCommandFailed)
		})

		gomock.InOrder(
			f.executor.EXPECT().Execute(gomock.Any(), commandNamed("readcorpus"), gomock.Any(), gomock.Any()).
				Return(assert.AnError),
			f.expectCommand("readcorpus", "", "out.txt", "v1"),
			f.expectCommand("visualize", "", "out.png", "png v1"),
		)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() {
			done <- f.app.Watch(ctx, app.WatchOptions{Debounce: 50 * time.Millisecond})
		}()
		synctest.Wait()

		events <- ports.WatchEvent{Path: "file.txt", Operation: ports.OpWrite}
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		cancel()
		require.NoError(t, <-done)
		close(events)
	})
}

func TestApp_WatchFollowsNewDeclarations(t *testing.T) {
	workspace(t)

	synctest.Test(t, func(t *testing.T) {
		var started []*mocks.MockWatcher
		f := newFixture(t, func() (ports.Watcher, error) {
			w := started[0]
			started = started[1:]
			return w, nil
		})
		first := mocks.NewMockWatcher(f.ctrl)
		second := mocks.NewMockWatcher(f.ctrl)
		started = []*mocks.MockWatcher{first, second}

		declareCorpus(t, f.app)
		writeFile(t, "file.txt", "corpus v1")

		firstEvents := make(chan ports.WatchEvent)
		secondEvents := make(chan ports.WatchEvent)
		gomock.InOrder(
			first.EXPECT().Start(gomock.Any(), []string{"file.txt", "out.txt"}).Return(nil),
			second.EXPECT().Start(gomock.Any(), []string{"file.txt", "out.txt", "style.css"}).Return(nil),
			first.EXPECT().Stop().Return(nil),
			second.EXPECT().Stop().Return(nil),
		)
		first.EXPECT().Events().Return(eventsFrom(firstEvents))
		second.EXPECT().Events().Return(eventsFrom(secondEvents))

		gomock.InOrder(
			f.expectCommand("readcorpus", "", "out.txt", "v1"),
			f.expectCommand("visualize", "", "out.png", "png v1"),
			f.expectCommand("readcorpus", "", "out.txt", "v2"),
			f.expectCommand("visualize", "", "out.png", "png v2"),
			f.expectCommand("visualize", "", "out.png", "png v3"),
		)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() {
			done <- f.app.Watch(ctx, app.WatchOptions{Debounce: 50 * time.Millisecond})
		}()
		synctest.Wait()

		writeFile(t, "style.css", "body {}")
		require.NoError(t, f.app.Reads(t.Context(), "visualize", []string{"style.css"}))

		writeFile(t, "file.txt", "corpus v2")
		firstEvents <- ports.WatchEvent{Path: "file.txt", Operation: ports.OpWrite}
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, "declarations changed, now watching 3 path(s)", f.lastInfo())

		writeFile(t, "style.css", "body { color: red }")
		secondEvents <- ports.WatchEvent{Path: "style.css", Operation: ports.OpWrite}
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		cancel()
		require.NoError(t, <-done)
		close(firstEvents)
		close(secondEvents)
	})
}

func TestApp_WatchKeepsWatcherWhenReloadFails(t *testing.T) {
	workspace(t)

	synctest.Test(t, func(t *testing.T) {
		var w *mocks.MockWatcher
		f := newFixture(t, func() (ports.Watcher, error) { return w, nil })
		w = mocks.NewMockWatcher(f.ctrl)

		declareCorpus(t, f.app)
		writeFile(t, "file.txt", "corpus v1")

		events := make(chan ports.WatchEvent)
		w.EXPECT().Start(gomock.Any(), []string{"file.txt", "out.txt"}).Return(nil)
		w.EXPECT().Events().Return(eventsFrom(events))
		w.EXPECT().Stop().Return(nil)

		gomock.InOrder(
			f.expectCommand("readcorpus", "", "out.txt", "v1"),
			f.expectCommand("visualize", "", "out.png", "png v1"),
		)
		// The run and the reload both fail once the state file is gone.
		f.logger.EXPECT().Error(gomock.Any()).Times(2)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() {
			done <- f.app.Watch(ctx, app.WatchOptions{Debounce: 50 * time.Millisecond})
		}()
		synctest.Wait()

		require.NoError(t, os.Remove(domain.StateFileName))
		events <- ports.WatchEvent{Path: "file.txt", Operation: ports.OpWrite}
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		cancel()
		require.NoError(t, <-done)
		close(events)
	})
}

func TestApp_WatchStartFailure(t *testing.T) {
	workspace(t)
	var w *mocks.MockWatcher
	f := newFixture(t, func() (ports.Watcher, error) { return w, nil })
	w = mocks.NewMockWatcher(f.ctrl)
	declareCorpus(t, f.app)

	w.EXPECT().Start(gomock.Any(), gomock.Any()).Return(domain.ErrWatchFailed)
	w.EXPECT().Stop().Return(nil)

	err := f.app.Watch(context.Background(), app.WatchOptions{})
	assert.ErrorIs(t, err, domain.ErrWatchFailed)
}
