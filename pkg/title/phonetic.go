package title

import (
	"strings"

	"github.com/antzucaro/matchr"
)

var phoneticMemo = newMemo[string](200000)

// PhoneticKey returns the phonetic hash of a normalized title: the
// concatenated Double Metaphone primary codes of its tokens, an ASCII
// consonant skeleton. Titles that sound alike map to the same key.
//
// The key is empty for empty input and for inputs with no encodable
// consonant structure (digit-only or all-vowel strings); an empty key must
// never be used for matching.
func PhoneticKey(normalized string) string {
	return phoneticMemo.get(normalized, phoneticKey)
}

func phoneticKey(normalized string) string {
	if normalized == "" {
		return ""
	}
	// Double Metaphone encodes a leading vowel as "A"; a title without any
	// consonant letter gets the empty key instead.
	hasConsonant := strings.ContainsFunc(normalized, func(r rune) bool {
		return r >= 'a' && r <= 'z' && !strings.ContainsRune("aeiou", r)
	})
	if !hasConsonant {
		return ""
	}
	var b strings.Builder
	for _, tok := range strings.Fields(normalized) {
		primary, _ := matchr.DoubleMetaphone(tok)
		b.WriteString(primary)
	}
	return b.String()
}
