package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrVersion = "version"
	attrEnv     = "env"
	attrMode    = "mode"
)

// Meta is the service metadata attached to every log record.
type Meta struct {
	Service string
	Version string
	Env     string
	Mode    AppMode
}

func (m Meta) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String(attrService, m.Service),
		slog.String(attrMode, string(m.Mode)),
	}

	if m.Version != "" {
		attrs = append(attrs, slog.String(attrVersion, m.Version))
	}

	if m.Env != "" {
		attrs = append(attrs, slog.String(attrEnv, m.Env))
	}

	return attrs
}

// TracingHandler is an [slog.Handler] that adds the active span's trace_id
// and span_id to each record. Service metadata is attached once at
// construction so it stays at the top level when groups are opened later.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner with trace context injection and meta.
func NewTracingHandler(inner slog.Handler, meta Meta) *TracingHandler {
	return &TracingHandler{inner: inner.WithAttrs(meta.attrs())}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace context attributes from the span context, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}

// Discard returns a logger that drops every record. Used when callers pass
// no logger.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
