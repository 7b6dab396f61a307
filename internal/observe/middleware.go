package observe

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// outcomeKey carries a *requestOutcome through the request context.
type outcomeKey struct{}

// requestOutcome is the domain result of one request ("success", "rejected",
// "conflict", …). Written at most once by the handler, read by the
// middleware after the handler returns, so no locking is needed.
type requestOutcome struct {
	value string
}

// SetOutcome records the domain outcome of the current request so the access
// log and the request span carry it. No-op when the request did not pass
// through [Middleware].
func SetOutcome(ctx context.Context, outcome string) {
	if o, ok := ctx.Value(outcomeKey{}).(*requestOutcome); ok {
		o.value = outcome
	}
}

// statusWriter captures the status code written by the downstream handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware wraps the API surface with the engine's per-request telemetry:
// a server span continuing any W3C trace context from the caller, the trace
// ID echoed as X-Correlation-ID, request duration recorded to
// [Metrics.HTTPRequestDuration], and one access-log line that includes the
// domain outcome the handler reported via [SetOutcome].
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	propagator := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()

			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := otel.Tracer(tracerName).Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			outcome := &requestOutcome{}
			ctx = context.WithValue(ctx, outcomeKey{}, outcome)

			if id := TraceID(ctx); id != "" {
				w.Header().Set("X-Correlation-ID", id)
			}
			propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			elapsed := time.Since(started)
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
				metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("path", r.URL.Path),
				),
			)

			span.SetAttributes(semconv.HTTPResponseStatusCode(sw.status))
			if outcome.value != "" {
				span.SetAttributes(attribute.String("verify.outcome", outcome.value))
			}

			attrs := []slog.Attr{
				slog.String("trace_id", TraceID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("duration", elapsed),
			}
			if outcome.value != "" {
				attrs = append(attrs, slog.String("outcome", outcome.value))
			}
			slog.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
		})
	}
}
