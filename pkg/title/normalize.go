// Package title implements the title-conflict detection core: normalization,
// phonetic hashing, character n-grams, the in-memory multi-index over the
// registered corpus, lexical conflict rules, and the naming-guideline checks.
//
// Every matching operation works on the normalized form of a title: lowercase
// ASCII restricted to [a-z0-9 ], single-spaced and trimmed. Raw titles are
// kept only as canonical display forms for human-readable reasons.
//
// All exported types are safe for concurrent use.
package title

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// leetMap undoes common leetspeak substitutions after romanization.
// The !→b mapping is intentional and load-bearing; do not "fix" it to !→i
// without a product decision.
var leetMap = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'8': 'b',
	'@': 'a',
	'!': 'b',
}

// normalizeMemo caches normalization results. Normalization is pure, so the
// table is shared process-wide.
var normalizeMemo = newMemo[string](200000)

// Normalize converts a raw title into its canonical matching form:
//
//  1. Romanize to ASCII (Latin, Indic, and common CJK scripts).
//  2. Lowercase.
//  3. Undo leetspeak substitutions.
//  4. Replace every character outside [a-z0-9 ] with a space.
//  5. Collapse whitespace runs and trim.
//
// Normalize is deterministic and idempotent: Normalize(Normalize(x)) equals
// Normalize(x) for every input.
func Normalize(raw string) string {
	return normalizeMemo.get(raw, normalize)
}

func normalize(raw string) string {
	romanized := strings.ToLower(unidecode.Unidecode(raw))

	var b strings.Builder
	b.Grow(len(romanized))
	space := true // collapses leading whitespace too
	for _, r := range romanized {
		if sub, ok := leetMap[r]; ok {
			r = sub
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}
