package verify

import (
	"fmt"

	"github.com/verifyxo/engine/pkg/store"
	"github.com/verifyxo/engine/pkg/title"
)

// Ensemble weights. Semantic similarity carries the most signal; phonetic
// identity is a strong discrete cue; raw spelling distance the weakest.
const (
	weightSemantic = 0.40
	weightPhonetic = 0.35
	weightLexical  = 0.25
)

// ensembleOutcome is the result of scoring the semantic candidate set.
type ensembleOutcome struct {
	// highest is the best weighted total across all candidates, in [0, 100].
	highest float64

	// reasons holds one sentence per candidate whose total reached the
	// rejection threshold. Scoring stops at the first such candidate.
	reasons []string
}

// scoreEnsemble fuses the vector search hits with phonetic and lexical
// signals. cleanQuery is the normalized query title; matches come back from
// the vector searcher ordered most-similar first. Candidates repeating an
// already-seen raw title are skipped, as are candidates whose normalization
// is empty.
func scoreEnsemble(cleanQuery string, matches []store.Match, rejectThreshold float64) ensembleOutcome {
	var out ensembleOutcome
	queryKey := title.PhoneticKey(cleanQuery)

	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if m.Title == "" {
			continue
		}
		if _, dup := seen[m.Title]; dup {
			continue
		}
		seen[m.Title] = struct{}{}

		cleanMatch := title.Normalize(m.Title)
		if cleanMatch == "" {
			continue
		}

		semantic := clamp(m.Similarity*100, 0, 100)
		phonetic := 0.0
		if queryKey != "" && queryKey == title.PhoneticKey(cleanMatch) {
			phonetic = 100.0
		}
		lexical := title.Ratio(cleanQuery, cleanMatch)

		total := weightSemantic*semantic + weightPhonetic*phonetic + weightLexical*lexical
		if total > out.highest {
			out.highest = total
		}

		if total >= rejectThreshold {
			out.reasons = append(out.reasons,
				ensembleReason(m.Title, total, semantic, phonetic, lexical))
			break
		}
	}
	return out
}

// ensembleReason names the dominant similarity dimension — the one with the
// largest weighted contribution — in the applicant-facing sentence. Ties
// resolve in weight order: semantic, then phonetic, then lexical.
func ensembleReason(matchedTitle string, total, semantic, phonetic, lexical float64) string {
	dimensions := []struct {
		label    string
		weighted float64
	}{
		{"Similarity in meaning (semantic conflict)", weightSemantic * semantic},
		{"Similarity in sound (phonetic conflict)", weightPhonetic * phonetic},
		{"Similarity in spelling (lexical conflict)", weightLexical * lexical},
	}
	primary := dimensions[0]
	for _, d := range dimensions[1:] {
		if d.weighted > primary.weighted {
			primary = d
		}
	}
	return fmt.Sprintf("%s with existing title '%s' (%.1f%% total similarity).",
		primary.label, matchedTitle, total)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
