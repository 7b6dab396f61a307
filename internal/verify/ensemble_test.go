package verify

import (
	"strings"
	"testing"

	"github.com/verifyxo/engine/pkg/store"
)

func TestScoreEnsemble_WeightedTotal(t *testing.T) {
	t.Parallel()

	// Exact lexical and phonetic agreement with full semantic similarity
	// must reach 100.
	out := scoreEnsemble("indian express",
		[]store.Match{{Title: "Indian Express", Similarity: 1.0}}, 70)
	if out.highest < 99.9 {
		t.Errorf("highest = %v, want ~100", out.highest)
	}
	if len(out.reasons) != 1 {
		t.Fatalf("reasons = %v, want one", out.reasons)
	}
}

func TestScoreEnsemble_SemanticOnlyStaysBelowThreshold(t *testing.T) {
	t.Parallel()

	// 0.40 weight caps a pure-semantic match at 40 plus whatever residual
	// lexical overlap exists.
	out := scoreEnsemble("quantum gazette",
		[]store.Match{{Title: "Velocity Journal", Similarity: 1.0}}, 70)
	if out.highest >= 70 {
		t.Errorf("highest = %v, want < 70 for a semantically-only similar title", out.highest)
	}
	if len(out.reasons) != 0 {
		t.Errorf("reasons = %v, want none below threshold", out.reasons)
	}
}

func TestScoreEnsemble_DominantDimensionNamed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		match store.Match
		want  string
	}{
		{
			name:  "semantic dominates",
			query: "farm weekly",
			match: store.Match{Title: "Agriculture Today", Similarity: 0.99},
			want:  "Similarity in meaning",
		},
		{
			name:  "phonetic dominates",
			query: "kolkata times",
			match: store.Match{Title: "Colcata Times", Similarity: 0.55},
			want:  "Similarity in sound",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := scoreEnsemble(tc.query, []store.Match{tc.match}, 40)
			if len(out.reasons) != 1 {
				t.Fatalf("reasons = %v, want one (threshold 40)", out.reasons)
			}
			if !strings.Contains(out.reasons[0], tc.want) {
				t.Errorf("reason = %q, want it to contain %q", out.reasons[0], tc.want)
			}
		})
	}
}

func TestScoreEnsemble_DeduplicatesByRawTitle(t *testing.T) {
	t.Parallel()

	matches := []store.Match{
		{Title: "Indian Express", Similarity: 0.2},
		{Title: "Indian Express", Similarity: 0.99}, // duplicate, must be skipped
	}
	out := scoreEnsemble("quantum gazette", matches, 101)
	// Only the first occurrence counts; with similarity 0.2 the weighted
	// total stays small.
	if out.highest > 30 {
		t.Errorf("highest = %v; duplicate candidate was not skipped", out.highest)
	}
}

func TestScoreEnsemble_StopsAtFirstThresholdHit(t *testing.T) {
	t.Parallel()

	matches := []store.Match{
		{Title: "Indian Express", Similarity: 1.0},
		{Title: "Indian Xpress", Similarity: 1.0},
	}
	out := scoreEnsemble("indian express", matches, 70)
	if len(out.reasons) != 1 {
		t.Errorf("reasons = %v, want scoring to stop after the first rejection-level hit", out.reasons)
	}
}

func TestScoreEnsemble_SkipsUnnormalizableCandidates(t *testing.T) {
	t.Parallel()

	out := scoreEnsemble("indian express",
		[]store.Match{{Title: "???", Similarity: 1.0}}, 70)
	if out.highest != 0 || len(out.reasons) != 0 {
		t.Errorf("outcome = %+v, want zero for an unnormalizable candidate", out)
	}
}

func TestScoreEnsemble_ClampsSimilarity(t *testing.T) {
	t.Parallel()

	// Cosine similarity can be negative; the semantic component must clamp
	// to zero rather than dragging the total below the lexical floor.
	out := scoreEnsemble("indian express",
		[]store.Match{{Title: "Indian Express", Similarity: -0.5}}, 101)
	// phonetic 100 → 35, lexical 100 → 25, semantic clamped to 0.
	if out.highest < 59.9 || out.highest > 60.1 {
		t.Errorf("highest = %v, want 60 with semantic clamped to 0", out.highest)
	}
}
