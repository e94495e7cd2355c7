package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/logger"
)

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(logger.NewWriter(logger.LevelDebug, &buf, "dispatch"))

	sink.Emit(context.Background(), Event{Kind: EventDispatched, RequestID: "r1", ToolID: "debug", Model: "gpt-5", Attempt: 2, Elapsed: 1500 * time.Millisecond})
	sink.Emit(context.Background(), Event{Kind: EventFailed, RequestID: "r1", ToolID: "debug", Model: "gpt-5", RetryCount: 2, ErrorKind: "provider_unavailable", Err: errors.New("503 from upstream")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[DEBUG] [dispatch] dispatch dispatched request_id=r1 tool_id=debug model=gpt-5 elapsed=1.5s attempt=2")
	assert.Contains(t, lines[1], "[WARN]")
	assert.Contains(t, lines[1], `kind=provider_unavailable error="503 from upstream"`)
}

func TestMetricsSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewMetricsSink(reg)
	ctx := context.Background()

	sink.Emit(ctx, Event{Kind: EventDispatched, ToolID: "chat", Model: "gpt-5", Attempt: 1})
	sink.Emit(ctx, Event{Kind: EventDispatched, ToolID: "chat", Model: "gpt-5", Attempt: 2})
	sink.Emit(ctx, Event{Kind: EventSucceeded, ToolID: "chat", Model: "gpt-5", Truncated: true, Elapsed: time.Second,
		Usage: llm.Usage{InputTokens: 100, OutputTokens: 20, ReasoningTokens: 5}})
	sink.Emit(ctx, Event{Kind: EventFailed, ToolID: "debug", Model: "gpt-5", ErrorKind: "auth_error"})

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.attempts.WithLabelValues("chat", "gpt-5")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.retries.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.requests.WithLabelValues("chat", "gpt-5", "success")))
	assert.Equal(t, 100.0, testutil.ToFloat64(sink.tokens.WithLabelValues("gpt-5", "input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.truncated.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.failures.WithLabelValues("debug", "auth_error")))

	count, err := testutil.GatherAndCount(reg, "toolrelay_dispatch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMultiSinkAndRecorder(t *testing.T) {
	first, second := &Recorder{}, &Recorder{}
	var called int
	sink := MultiSink{first, nil, second, SinkFunc(func(context.Context, Event) { called++ }), NopSink{}}

	sink.Emit(context.Background(), Event{Kind: EventDispatched})
	sink.Emit(context.Background(), Event{Kind: EventFailed})

	assert.Len(t, first.Events(), 2)
	assert.Equal(t, 1, second.Count(EventFailed))
	assert.Equal(t, 2, called)
}

func TestTracerSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tracer := NewTracerWithProvider(provider)
	ctx, root := tracer.StartDispatch(context.Background(), "debug", "req-1")
	_, call := tracer.StartProviderCall(ctx, "gpt-5", 1)
	RecordError(call, errors.New("boom"))
	call.End()
	SetAttributes(root, "truncated", true, "retries", 1, 42, "ignored")
	root.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "provider.invoke", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, "dispatch debug", spans[1].Name())
	assert.Len(t, spans[1].Attributes(), 4)
}

func TestNewTracerProviderCarriesServiceResource(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := NewTracerProvider(context.Background(), TraceConfig{ServiceVersion: "1.2.3"}, sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := NewTracerWithProvider(provider).StartDispatch(context.Background(), "chat", "req-2")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	attrs := map[string]string{}
	for _, kv := range spans[0].Resource.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "toolrelay", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
}

func TestNewTracerProviderSampleRate(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := NewTracerProvider(context.Background(), TraceConfig{SampleRate: -1}, sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := NewTracerWithProvider(provider).StartDispatch(context.Background(), "chat", "req-3")
	assert.False(t, span.IsRecording())
	span.End()
	assert.Empty(t, exporter.GetSpans())
}

func TestSetupTracingDisabledWithoutEndpoint(t *testing.T) {
	tracer, shutdown, err := SetupTracing(context.Background(), TraceConfig{})
	require.NoError(t, err)
	require.NotNil(t, tracer)

	_, span := tracer.StartDispatch(context.Background(), "chat", "req-4")
	assert.False(t, span.IsRecording())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracingInstallsExportingProvider(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	// The gRPC client connects lazily, so no collector has to listen.
	tracer, shutdown, err := SetupTracing(context.Background(), TraceConfig{
		ServiceVersion: "test",
		Endpoint:       "http://127.0.0.1:4317",
	})
	require.NoError(t, err)

	_, span := tracer.StartDispatch(context.Background(), "chat", "req-5")
	assert.True(t, span.IsRecording())
	assert.True(t, span.SpanContext().IsValid())
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}
