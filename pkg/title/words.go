package title

// defaultPeriodicity lists publication-cycle words in English and several
// Indic languages. A title that only adds one of these to a registered title
// is treated as a conflict.
var defaultPeriodicity = []string{
	"daily", "weekly", "monthly", "fortnightly", "annual",
	"dainik", "saptahik", "masik", "varshik", "pratidin", "rozana",
}

// defaultDisallowed lists words that registry guidelines forbid in
// publication titles.
var defaultDisallowed = []string{
	"police", "crime", "corruption", "cbi", "cid", "army",
}

// defaultAffixes lists words that may not be prepended or appended to an
// existing registered title to mint a "new" one.
var defaultAffixes = []string{
	"the", "india", "samachar", "news",
}

func wordSet(words []string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[Normalize(w)] = struct{}{}
	}
	delete(s, "")
	return s
}
