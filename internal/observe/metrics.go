// Package observe provides application-wide observability primitives for the
// verification engine: OpenTelemetry metrics, tracing, and HTTP middleware
// that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is wired by [Init] so that metrics can still be scraped
// via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all engine metrics.
const meterName = "github.com/verifyxo/engine"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// VerifyDuration tracks full verification pipeline latency.
	VerifyDuration metric.Float64Histogram

	// LexicalDuration tracks lexical conflict detection latency.
	LexicalDuration metric.Float64Histogram

	// EmbedDuration tracks embedding service call latency.
	EmbedDuration metric.Float64Histogram

	// VectorSearchDuration tracks vector match query latency.
	VectorSearchDuration metric.Float64Histogram

	// --- Counters ---

	// Verifications counts verification requests. Use with attributes:
	//   attribute.String("status", "success"|"rejected"),
	//   attribute.String("stage", "lexical"|"guideline"|"ensemble"|"none")
	Verifications metric.Int64Counter

	// Submissions counts official application submissions by status.
	Submissions metric.Int64Counter

	// SemanticErrors counts embed/vector-search failures the pipeline
	// degraded through.
	SemanticErrors metric.Int64Counter

	// CacheHits and CacheMisses count result-cache lookups.
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// --- Gauges ---

	// IndexedTitles tracks the number of normalized titles in the in-memory
	// index.
	IndexedTitles metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for a tens-of-milliseconds verification budget.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.VerifyDuration, err = m.Float64Histogram("verifyxo.verify.duration",
		metric.WithDescription("End-to-end verification pipeline latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LexicalDuration, err = m.Float64Histogram("verifyxo.lexical.duration",
		metric.WithDescription("Lexical conflict detection latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmbedDuration, err = m.Float64Histogram("verifyxo.embed.duration",
		metric.WithDescription("Embedding service call latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VectorSearchDuration, err = m.Float64Histogram("verifyxo.vector_search.duration",
		metric.WithDescription("Vector match query latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Verifications, err = m.Int64Counter("verifyxo.verifications",
		metric.WithDescription("Total verification requests by status and deciding stage."),
	); err != nil {
		return nil, err
	}
	if met.Submissions, err = m.Int64Counter("verifyxo.submissions",
		metric.WithDescription("Total official application submissions by status."),
	); err != nil {
		return nil, err
	}
	if met.SemanticErrors, err = m.Int64Counter("verifyxo.semantic.errors",
		metric.WithDescription("Total semantic stage failures degraded to lexical-only verdicts."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("verifyxo.cache.hits",
		metric.WithDescription("Result cache hits."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("verifyxo.cache.misses",
		metric.WithDescription("Result cache misses."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.IndexedTitles, err = m.Int64UpDownCounter("verifyxo.indexed_titles",
		metric.WithDescription("Number of normalized titles in the in-memory index."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("verifyxo.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordVerification records one verification outcome with the deciding stage.
func (m *Metrics) RecordVerification(ctx context.Context, status, stage string) {
	m.Verifications.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("stage", stage),
		),
	)
}
