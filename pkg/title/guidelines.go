package title

import (
	"fmt"
	"sort"
	"strings"
)

// Guidelines applies the registry's rule-based naming checks: disallowed
// words, periodicity-modifier conflicts, and prefix/suffix conflicts with
// registered titles. Unlike lexical conflict detection, every violated rule
// is reported — the applicant sees the complete list.
//
// Guidelines is read-only after construction and safe for concurrent use.
type Guidelines struct {
	disallowed  map[string]struct{}
	affixes     map[string]struct{}
	periodicity map[string]struct{}
}

// GuidelinesOption configures a [Guidelines] checker.
type GuidelinesOption func(*Guidelines)

// WithDisallowedWords adds words to the built-in disallowed vocabulary.
func WithDisallowedWords(words ...string) GuidelinesOption {
	return func(g *Guidelines) {
		for w, s := range wordSet(words) {
			g.disallowed[w] = s
		}
	}
}

// WithAffixWords adds words to the built-in prefix/suffix vocabulary.
func WithAffixWords(words ...string) GuidelinesOption {
	return func(g *Guidelines) {
		for w, s := range wordSet(words) {
			g.affixes[w] = s
		}
	}
}

// NewGuidelines returns a checker with the default vocabularies.
func NewGuidelines(opts ...GuidelinesOption) *Guidelines {
	g := &Guidelines{
		disallowed:  wordSet(defaultDisallowed),
		affixes:     wordSet(defaultAffixes),
		periodicity: wordSet(defaultPeriodicity),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Check evaluates every guideline against a raw title. ix may be nil, in
// which case the corpus-dependent rules are skipped.
func (g *Guidelines) Check(rawTitle string, ix *Index) []string {
	return g.CheckNormalized(Normalize(rawTitle), ix)
}

// CheckNormalized evaluates every guideline against an already-normalized
// title and returns one reason per violation. An empty result means the
// title passes.
func (g *Guidelines) CheckNormalized(clean string, ix *Index) []string {
	words := strings.Fields(clean)
	if len(words) == 0 {
		return []string{"Title cannot be empty."}
	}

	var reasons []string

	var offenders []string
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, bad := g.disallowed[w]; bad {
			offenders = append(offenders, w)
		}
	}
	if len(offenders) > 0 {
		sort.Strings(offenders)
		reasons = append(reasons,
			fmt.Sprintf("Contains disallowed words: %s.", strings.ToUpper(strings.Join(offenders, ", "))))
	}

	if ix != nil {
		if g.hasPeriodicity(words) {
			if base, ok := ix.PeriodicityBase(clean); ok {
				reasons = append(reasons,
					fmt.Sprintf("Uses periodicity term to modify an existing title ('%s').", base))
			}
		}

		if _, affix := g.affixes[words[0]]; affix {
			base := strings.Join(words[1:], " ")
			if base != "" && ix.Contains(base) {
				reasons = append(reasons,
					fmt.Sprintf("Disallowed prefix '%s' creates conflict with existing title '%s'.",
						words[0], ix.DisplayTitle(base)))
			}
		}

		if _, affix := g.affixes[words[len(words)-1]]; affix {
			base := strings.Join(words[:len(words)-1], " ")
			if base != "" && ix.Contains(base) {
				reasons = append(reasons,
					fmt.Sprintf("Disallowed suffix '%s' creates conflict with existing title '%s'.",
						words[len(words)-1], ix.DisplayTitle(base)))
			}
		}
	}

	return reasons
}

func (g *Guidelines) hasPeriodicity(words []string) bool {
	for _, w := range words {
		if _, ok := g.periodicity[w]; ok {
			return true
		}
	}
	return false
}
