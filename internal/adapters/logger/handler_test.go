package logger_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depex/internal/adapters/logger"
)

func newTestHandler(t *testing.T, buf *bytes.Buffer) *logger.PrettyHandler {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	return logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
}

func TestPrettyHandler_Levels(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		goldenName string
	}{
		{name: "info", level: slog.LevelInfo, goldenName: "handler_info"},
		{name: "warn", level: slog.LevelWarn, goldenName: "handler_warn"},
		{name: "error", level: slog.LevelError, goldenName: "handler_error"},
		{name: "debug filtered", level: slog.LevelDebug, goldenName: "handler_debug_filtered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			lg := slog.New(newTestHandler(t, buf))

			lg.Log(t.Context(), tt.level, "message")

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestPrettyHandler_Attrs(t *testing.T) {
	tests := []struct {
		name  string
		setup func(slog.Handler) slog.Handler
		args  []any
		want  string
	}{
		{
			name: "record attrs",
			args: []any{"command", "readcorpus", "count", 2},
			want: "msg command=readcorpus count=2\n",
		},
		{
			name:  "handler attrs first",
			setup: func(h slog.Handler) slog.Handler { return h.WithAttrs([]slog.Attr{slog.String("plan", "ab12")}) },
			args:  []any{"command", "visualize"},
			want:  "msg plan=ab12 command=visualize\n",
		},
		{
			name: "group attribute",
			args: []any{slog.Group("g", slog.String("k", "v"))},
			want: "msg g.k=v\n",
		},
		{
			name:  "nested groups",
			setup: func(h slog.Handler) slog.Handler { return h.WithGroup("a").WithGroup("b") },
			args:  []any{"key", "val"},
			want:  "msg a.b.key=val\n",
		},
		{
			name: "attrs keep the group open when they were added",
			setup: func(h slog.Handler) slog.Handler {
				return h.WithGroup("req").WithAttrs([]slog.Attr{slog.String("id", "1")}).WithGroup("inner")
			},
			args: []any{"extra", "data"},
			want: "msg req.id=1 req.inner.extra=data\n",
		},
		{
			name:  "empty group name is ignored",
			setup: func(h slog.Handler) slog.Handler { return h.WithGroup("") },
			args:  []any{"key", "val"},
			want:  "msg key=val\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			var h slog.Handler = newTestHandler(t, buf)
			if tt.setup != nil {
				h = tt.setup(h)
			}

			slog.New(h).Info("msg", tt.args...)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	buf := &bytes.Buffer{}
	h := logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, h.Enabled(t.Context(), slog.LevelWarn))
	assert.True(t, h.Enabled(t.Context(), slog.LevelError))

	assert.True(t, logger.NewPrettyHandler(buf, nil).Enabled(t.Context(), slog.LevelInfo))
}

func TestPrettyHandler_NilWriter(t *testing.T) {
	require.NotPanics(t, func() {
		_ = logger.NewPrettyHandler(nil, nil)
	})
}

func TestPrettyHandler_WriteError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	h := logger.NewPrettyHandler(brokenWriter{}, nil)

	rec := slog.NewRecord(time.Time{}, slog.LevelInfo, "lost", 0)
	assert.ErrorIs(t, h.Handle(t.Context(), rec), assert.AnError)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}
