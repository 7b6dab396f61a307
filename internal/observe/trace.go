package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the engine tracer.
const tracerName = "github.com/verifyxo/engine"

// StartStageSpan starts a span for one verification pipeline stage
// ("pipeline", "semantic", …) and tags it with the stage name. The caller
// must call span.End() when the stage finishes.
//
// Spans are recorded in-process only — the engine uses them for correlation
// IDs and per-stage timing, not for export (see [Init]).
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "verify."+stage,
		trace.WithAttributes(attribute.String("verify.stage", stage)),
	)
}

// TraceID extracts the trace ID from the span context in ctx. Returns the
// empty string when no active span with a valid trace ID exists. The trace
// ID doubles as the X-Correlation-ID the HTTP layer hands back to callers.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Logger returns an [slog.Logger] enriched with trace_id and span_id from
// the span context in ctx, so a rejection logged deep in the pipeline can be
// joined with its HTTP access-log line. When no active span is present, the
// returned logger is the default slog logger without extra attributes.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
