package telemetry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/depex/internal/adapters/telemetry"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/depex/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestTracer_SpanLifecycleReachesRenderer(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)

	tp := telemetry.NewProvider(telemetry.NewBridge(renderer))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	tracer := telemetry.NewOTelTracer("test").WithProvider("test", tp).WithRenderer(renderer)

	var spanID string
	gomock.InOrder(
		renderer.EXPECT().OnTaskStart(gomock.Any(), "readcorpus", gomock.Any()).
			Do(func(id, _ string, _ time.Time) { spanID = id }),
		renderer.EXPECT().OnTaskLog(gomock.Any(), []byte("reading file.txt\n")).
			Do(func(id string, _ []byte) { assert.Equal(t, spanID, id) }),
		renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), nil).
			Do(func(id string, _ time.Time, _ error) { assert.Equal(t, spanID, id) }),
	)

	_, span := tracer.Start(t.Context(), "readcorpus")
	n, err := span.Write([]byte("reading file.txt\n"))
	require.NoError(t, err)
	assert.Equal(t, 17, n)
	span.End()
}

func TestTracer_FailedSpan(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)

	tp := telemetry.NewProvider(telemetry.NewBridge(renderer))
	tracer := telemetry.NewOTelTracer("test").WithProvider("test", tp)

	renderer.EXPECT().OnTaskStart(gomock.Any(), "visualize", gomock.Any())
	renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(_ string, _ time.Time, err error) {
			require.Error(t, err)
			assert.Equal(t, "exit status 1", err.Error())
		})

	_, span := tracer.Start(t.Context(), "visualize")
	span.RecordError(errors.New("exit status 1"))
	span.End()
}

func TestTracer_Attributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := telemetry.NewOTelTracer("test").WithProvider("test", tp)

	_, span := tracer.Start(t.Context(), "readcorpus",
		ports.WithAttribute(telemetry.AttrCommand, "readcorpus"),
		ports.WithAttribute(telemetry.AttrArgv, []string{"python3", "read-corpus"}),
	)
	span.SetAttribute("int", 123)
	span.SetAttribute("int64", int64(7))
	span.SetAttribute("float64", 1.5)
	span.SetAttribute("bool", true)
	span.SetAttribute("other", complex(1, 1))
	_, _ = span.Write([]byte("no renderer"))
	span.RecordError(errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := make(map[attribute.Key]attribute.Value)
	for _, kv := range ended[0].Attributes() {
		got[kv.Key] = kv.Value
	}

	assert.Equal(t, "readcorpus", got[telemetry.AttrCommand].AsString())
	assert.Equal(t, []string{"python3", "read-corpus"}, got[telemetry.AttrArgv].AsStringSlice())
	assert.Equal(t, int64(123), got["int"].AsInt64())
	assert.Equal(t, int64(7), got["int64"].AsInt64())
	assert.InDelta(t, 1.5, got["float64"].AsFloat64(), 0)
	assert.True(t, got["bool"].AsBool())
	assert.Equal(t, "(1+1i)", got["other"].AsString())
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	var eventNames []string
	for _, ev := range ended[0].Events() {
		eventNames = append(eventNames, ev.Name)
	}
	assert.Contains(t, eventNames, "output")
	assert.Contains(t, eventNames, "exception")
}

func TestTracer_EmitPlan(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	tracer := telemetry.NewOTelTracer("test").WithRenderer(renderer)

	renderer.EXPECT().OnPlanEmit([]string{"readcorpus", "visualize"}, "0123456789abcdef")
	tracer.EmitPlan(t.Context(), []string{"readcorpus", "visualize"}, "0123456789abcdef")
}

func TestTracer_NoRenderer(t *testing.T) {
	tracer := telemetry.NewOTelTracer("test")
	tracer.EmitPlan(t.Context(), []string{"a"}, "id")

	_, span := tracer.Start(t.Context(), "a")
	n, err := span.Write([]byte("log"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	span.End()
}

func TestBridge_NilRenderer(t *testing.T) {
	tp := telemetry.NewProvider(telemetry.NewBridge(nil))
	_, span := tp.Tracer("test").Start(t.Context(), "test")
	span.End()
	require.NoError(t, tp.ForceFlush(t.Context()))
	require.NoError(t, tp.Shutdown(t.Context()))
}

func TestNoOpTracer(t *testing.T) {
	var tracer ports.Tracer = telemetry.NewNoOpTracer()

	ctx, span := tracer.Start(t.Context(), "noop", ports.WithAttribute("k", "v"))
	assert.Equal(t, t.Context(), ctx)

	n, err := span.Write([]byte("discarded"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	span.SetAttribute("k", "v")
	span.RecordError(errors.New("ignored"))
	span.End()
	tracer.EmitPlan(t.Context(), nil, "")
}
