package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/pyimports/pkg/observability"
)

func newJSONLogger(buf *bytes.Buffer, meta observability.Meta) *slog.Logger {
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(observability.NewTracingHandler(inner, meta))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(&buf, observability.Meta{
		Service: "test-svc",
		Version: "1.0.0",
		Env:     "ci",
		Mode:    observability.ModeCLI,
	})

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "scan done")

	record := decodeRecord(t, &buf)

	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "test-svc", record["service"])
	assert.Equal(t, "1.0.0", record["version"])
	assert.Equal(t, "ci", record["env"])
	assert.Equal(t, "cli", record["mode"])
}

func TestTracingHandler_NoTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(&buf, observability.Meta{Service: "pyimports", Mode: observability.ModeTest})
	logger.InfoContext(context.Background(), "no span")

	record := decodeRecord(t, &buf)

	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "version")
	assert.NotContains(t, record, "env")
	assert.Equal(t, "pyimports", record["service"])
	assert.Equal(t, "test", record["mode"])
}

func TestTracingHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(&buf, observability.Meta{Service: "pyimports", Mode: observability.ModeCLI})
	logger.WithGroup("walk").InfoContext(context.Background(), "skipped", slog.String("path", "a.py"))

	record := decodeRecord(t, &buf)

	assert.Equal(t, "pyimports", record["service"])

	walk, ok := record["walk"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a.py", walk["path"])
}

func TestTracingHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(&buf, observability.Meta{Service: "pyimports", Mode: observability.ModeCLI})
	logger.With(slog.String("op", "rename")).InfoContext(context.Background(), "started")

	record := decodeRecord(t, &buf)

	assert.Equal(t, "rename", record["op"])
	assert.Equal(t, "pyimports", record["service"])
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logger := observability.Discard()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
