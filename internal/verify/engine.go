// Package verify orchestrates the title verification pipeline: normalize →
// lexical conflict detection → guideline enforcement → weighted semantic
// ensemble → verdict.
//
// The pipeline degrades gracefully: any failure in the semantic stage
// (embedding call, vector search, timeout, open circuit breaker) produces a
// lexical-only verdict rather than an error. Guideline and conflict
// violations are domain outcomes, not errors — they reject the title with
// reasons.
package verify

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/verifyxo/engine/internal/observe"
	"github.com/verifyxo/engine/internal/resilience"
	"github.com/verifyxo/engine/pkg/provider/embeddings"
	"github.com/verifyxo/engine/pkg/store"
	"github.com/verifyxo/engine/pkg/title"
)

// Verdict is the full verification result returned to the applicant.
type Verdict struct {
	Status                  string   `json:"status"`
	VerificationProbability float64  `json:"verification_probability"`
	SimilarityPercentage    float64  `json:"similarity_percentage"`
	IsRejected              bool     `json:"is_rejected"`
	RejectionReasons        []string `json:"rejection_reasons"`
	Feedback                string   `json:"feedback"`
}

// Config holds the engine's collaborators and static thresholds.
type Config struct {
	Index      *title.Index
	Guidelines *title.Guidelines

	// Embedder and Vectors may be nil, in which case the semantic stage is
	// skipped entirely and verdicts are lexical-only.
	Embedder embeddings.Provider
	Vectors  store.VectorSearcher

	// Metrics may be nil; [observe.DefaultMetrics] is used then.
	Metrics *observe.Metrics

	LexicalRejectThreshold  float64
	EnsembleRejectThreshold float64
	VectorMatchThreshold    float64
	VectorMatchCount        int
	SemanticTimeout         time.Duration
	ResultCacheSize         int
}

// Engine runs the verification pipeline. Safe for concurrent use.
type Engine struct {
	index      *title.Index
	guidelines *title.Guidelines
	embedder   embeddings.Provider
	vectors    store.VectorSearcher
	metrics    *observe.Metrics
	breaker    *resilience.CircuitBreaker
	cache      *resultCache

	lexicalReject   float64
	ensembleReject  float64
	vectorThreshold float64
	vectorCount     int
	semanticTimeout time.Duration
}

// New creates an Engine from cfg. Zero-value thresholds get the documented
// defaults (82, 70, 0.35, 5 candidates, 3 s timeout, 5000 cache entries).
func New(cfg Config) *Engine {
	if cfg.LexicalRejectThreshold <= 0 {
		cfg.LexicalRejectThreshold = 82.0
	}
	if cfg.EnsembleRejectThreshold <= 0 {
		cfg.EnsembleRejectThreshold = 70.0
	}
	if cfg.VectorMatchThreshold == 0 {
		cfg.VectorMatchThreshold = 0.35
	}
	if cfg.VectorMatchCount <= 0 {
		cfg.VectorMatchCount = 5
	}
	if cfg.SemanticTimeout <= 0 {
		cfg.SemanticTimeout = 3 * time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Engine{
		index:      cfg.Index,
		guidelines: cfg.Guidelines,
		embedder:   cfg.Embedder,
		vectors:    cfg.Vectors,
		metrics:    cfg.Metrics,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "semantic-stage",
		}),
		cache:           newResultCache(cfg.ResultCacheSize),
		lexicalReject:   cfg.LexicalRejectThreshold,
		ensembleReject:  cfg.EnsembleRejectThreshold,
		vectorThreshold: cfg.VectorMatchThreshold,
		vectorCount:     cfg.VectorMatchCount,
		semanticTimeout: cfg.SemanticTimeout,
	}
}

// InvalidateCache drops every memoized verdict. Must be called after any
// mutation of the title index, once the index write has completed.
func (e *Engine) InvalidateCache() {
	e.cache.clear()
}

// Verify runs the full pipeline for one (title, language) query. It never
// returns an error: external failures degrade to lexical-only verdicts.
func (e *Engine) Verify(ctx context.Context, rawTitle, language string) Verdict {
	key := cacheKey{title: rawTitle, language: language}
	if v, ok := e.cache.get(key); ok {
		e.metrics.CacheHits.Add(ctx, 1)
		return v
	}
	e.metrics.CacheMisses.Add(ctx, 1)

	start := time.Now()
	ctx, span := observe.StartStageSpan(ctx, "pipeline")
	defer span.End()

	v, stage := e.verify(ctx, rawTitle)
	e.cache.put(key, v)

	e.metrics.VerifyDuration.Record(ctx, time.Since(start).Seconds())
	e.metrics.RecordVerification(ctx, v.Status, stage)
	return v
}

// verify is the uncached pipeline body. The returned stage names which part
// of the pipeline decided the verdict ("lexical", "guideline", "ensemble",
// or "none" for an accepted title).
func (e *Engine) verify(ctx context.Context, rawTitle string) (Verdict, string) {
	clean := title.Normalize(rawTitle)

	// ── Lexical stage ────────────────────────────────────────────────────
	lexStart := time.Now()
	lexReasons, lexScore := e.index.DetectConflictsNormalized(clean)
	e.metrics.LexicalDuration.Record(ctx, time.Since(lexStart).Seconds())

	// Tell the applicant what was actually matched when normalization
	// changed the input beyond trimming and lowercasing.
	if len(lexReasons) > 0 && clean != "" && clean != strings.ToLower(strings.TrimSpace(rawTitle)) {
		lexReasons = append(
			[]string{fmt.Sprintf("Input was normalized to '%s' before matching.", clean)},
			lexReasons...)
	}

	if lexScore >= e.lexicalReject {
		return rejected(lexScore, lexReasons,
			"Title is too close to an existing title by lexical/phonetic checks."), "lexical"
	}

	// ── Guideline stage ──────────────────────────────────────────────────
	if ruleReasons := e.guidelines.CheckNormalized(clean, e.index); len(ruleReasons) > 0 {
		return Verdict{
			Status:                  "rejected",
			VerificationProbability: 0,
			SimilarityPercentage:    100,
			IsRejected:              true,
			RejectionReasons:        ruleReasons,
			Feedback:                "Title violates PRGI naming guidelines.",
		}, "guideline"
	}

	// ── Early ensemble reject: lexical score alone already crosses the
	// ensemble threshold, so the semantic stage cannot change the outcome. ──
	if lexScore >= e.ensembleReject {
		reasons := lexReasons
		if len(reasons) == 0 {
			reasons = []string{fmt.Sprintf(
				"Lexical similarity is already above rejection threshold (%.1f%% >= %.1f%%).",
				lexScore, e.ensembleReject)}
		}
		return rejected(lexScore, reasons,
			"Rejected by lexical scoring without semantic stage."), "lexical"
	}

	// ── Semantic stage ───────────────────────────────────────────────────
	ensemble := e.semanticStage(ctx, rawTitle, clean)

	// ── Verdict ──────────────────────────────────────────────────────────
	final := max(lexScore, ensemble.highest)
	if final >= e.ensembleReject {
		reasons := dedup(append(append([]string{}, lexReasons...), ensemble.reasons...))
		if len(reasons) == 0 {
			reasons = []string{"High conceptual similarity detected with existing registered titles."}
		}
		return rejected(final, reasons,
			"Rejected by weighted lexical, phonetic, and semantic scoring."), "ensemble"
	}

	return Verdict{
		Status:                  "success",
		VerificationProbability: round2(max(0, 100-final)),
		SimilarityPercentage:    round2(final),
		IsRejected:              false,
		RejectionReasons:        []string{},
		Feedback:                "Title passed automated validation checks.",
	}, "none"
}

// semanticStage embeds the raw title and scores the vector search hits. Any
// failure — missing providers, open breaker, timeout, transport error —
// yields a zero outcome so the verdict falls back to the lexical score.
func (e *Engine) semanticStage(ctx context.Context, rawTitle, clean string) ensembleOutcome {
	if e.embedder == nil || e.vectors == nil {
		return ensembleOutcome{}
	}

	ctx, span := observe.StartStageSpan(ctx, "semantic")
	defer span.End()

	var out ensembleOutcome
	err := e.breaker.Execute(func() error {
		ctx, cancel := context.WithTimeout(ctx, e.semanticTimeout)
		defer cancel()

		embedStart := time.Now()
		vec, err := e.embedder.Embed(ctx, rawTitle)
		e.metrics.EmbedDuration.Record(ctx, time.Since(embedStart).Seconds())
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}

		searchStart := time.Now()
		matches, err := e.vectors.MatchTitles(ctx, vec, e.vectorThreshold, e.vectorCount)
		e.metrics.VectorSearchDuration.Record(ctx, time.Since(searchStart).Seconds())
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}

		out = scoreEnsemble(clean, matches, e.ensembleReject)
		return nil
	})
	if err != nil {
		e.metrics.SemanticErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("breaker", e.breaker.State().String())))
		observe.Logger(ctx).Warn("semantic stage failed, continuing without vector scores",
			"err", err)
		return ensembleOutcome{}
	}
	return out
}

// rejected assembles a rejection verdict with two-decimal rounding.
func rejected(similarity float64, reasons []string, feedback string) Verdict {
	if reasons == nil {
		reasons = []string{}
	}
	return Verdict{
		Status:                  "rejected",
		VerificationProbability: round2(max(0, 100-similarity)),
		SimilarityPercentage:    round2(similarity),
		IsRejected:              true,
		RejectionReasons:        reasons,
		Feedback:                feedback,
	}
}

// dedup removes duplicate reasons, preserving first-occurrence order.
func dedup(reasons []string) []string {
	seen := make(map[string]struct{}, len(reasons))
	out := reasons[:0]
	for _, r := range reasons {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
