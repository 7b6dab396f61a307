package title

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Conflict scores returned by the lexical rules, most specific first. The
// rule order is part of the product contract: the first rule that fires
// names the reason the applicant sees.
const (
	scoreExact       = 100.0
	scoreWordOrder   = 99.0
	scoreAcronym     = 98.0
	scorePeriodicity = 96.0
	scoreCombination = 94.0
	scorePhoneticMin = 92.0

	phoneticRatioMin = 60.0
	fuzzyRatioMin    = 80.0

	// acronymMaxLen bounds how long an all-letter query may be and still be
	// treated as a potential acronym of a multi-word title.
	acronymMaxLen = 8

	// maxCandidates caps the fuzzy-comparison candidate set per query.
	maxCandidates = 700

	// firstCharLenSlack is the maximum length difference for a first-char
	// candidate vote.
	firstCharLenSlack = 8
)

// Index is the in-memory multi-index over the registered title corpus. It
// supports exact, word-order, acronym, phonetic, periodicity, combination,
// and fuzzy-candidate lookups against ~10⁵ titles without full scans.
//
// All lookup maps store normalized titles directly; there are no cross-map
// keys. Every map is maintained in one pass by add, and Clear restores the
// empty state. There is no deletion path — the corpus only grows during the
// process lifetime.
//
// Index is safe for concurrent use. A single mutex guards every read and
// write; rule evaluation never performs I/O while holding it.
type Index struct {
	mu sync.Mutex

	periodicity map[string]struct{}

	titles    map[string]struct{}            // normalized corpus
	canonical map[string]map[string]struct{} // normalized → raw display forms
	phonetic  map[string]map[string]struct{} // phonetic key → normalized
	sorted    map[string]map[string]struct{} // sorted-words key → normalized
	acronyms  map[string]map[string]struct{} // acronym → normalized
	tokens    map[string]map[string]struct{} // token → normalized
	grams     map[string]map[string]struct{} // trigram → normalized
	firstChar map[byte]map[string]struct{}   // first byte → normalized

	addedAt map[string]int // insertion sequence, for deterministic tie-breaks
	seq     int
}

// IndexOption configures an [Index] at construction time.
type IndexOption func(*Index)

// WithPeriodicityWords adds extra publication-cycle words to the built-in
// periodicity vocabulary. Words are normalized before use.
func WithPeriodicityWords(words ...string) IndexOption {
	return func(ix *Index) {
		for w, s := range wordSet(words) {
			ix.periodicity[w] = s
		}
	}
}

// NewIndex returns an empty [Index] with the default vocabulary.
func NewIndex(opts ...IndexOption) *Index {
	ix := &Index{periodicity: wordSet(defaultPeriodicity)}
	ix.reset()
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// reset (re)allocates every lookup map. Callers must hold ix.mu, except
// during construction.
func (ix *Index) reset() {
	ix.titles = make(map[string]struct{})
	ix.canonical = make(map[string]map[string]struct{})
	ix.phonetic = make(map[string]map[string]struct{})
	ix.sorted = make(map[string]map[string]struct{})
	ix.acronyms = make(map[string]map[string]struct{})
	ix.tokens = make(map[string]map[string]struct{})
	ix.grams = make(map[string]map[string]struct{})
	ix.firstChar = make(map[byte]map[string]struct{})
	ix.addedAt = make(map[string]int)
	ix.seq = 0
}

// Clear removes every title from the index.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.reset()
}

// Add inserts one raw title into every lookup map. A title whose normalized
// form is empty is silently ignored.
func (ix *Index) Add(rawTitle string) {
	normalized := Normalize(rawTitle)
	if normalized == "" {
		return
	}
	key := PhoneticKey(normalized)
	gramsOf := Trigrams(normalized)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	words := strings.Fields(normalized)
	ix.titles[normalized] = struct{}{}
	addTo(ix.canonical, normalized, strings.TrimSpace(rawTitle))
	if _, seen := ix.addedAt[normalized]; !seen {
		ix.addedAt[normalized] = ix.seq
		ix.seq++
	}

	if key != "" {
		addTo(ix.phonetic, key, normalized)
	}

	if len(words) > 1 {
		sortedWords := append([]string(nil), words...)
		sort.Strings(sortedWords)
		addTo(ix.sorted, strings.Join(sortedWords, " "), normalized)
		if acr := acronym(words); acr != "" {
			addTo(ix.acronyms, acr, normalized)
		}
	}

	for _, tok := range words {
		addTo(ix.tokens, tok, normalized)
	}
	for _, g := range gramsOf {
		addTo(ix.grams, g, normalized)
	}

	set, ok := ix.firstChar[normalized[0]]
	if !ok {
		set = make(map[string]struct{})
		ix.firstChar[normalized[0]] = set
	}
	set[normalized] = struct{}{}
}

// Extend adds every title in titles.
func (ix *Index) Extend(titles []string) {
	for _, t := range titles {
		ix.Add(t)
	}
}

// Len reports the number of distinct normalized titles in the corpus.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.titles)
}

// Contains reports whether the normalized title is in the corpus.
func (ix *Index) Contains(normalized string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.titles[normalized]
	return ok
}

// DisplayTitle returns the canonical raw form of a normalized title: the
// lexicographically smallest registered spelling, which keeps reasons stable
// across restarts. Unknown titles are title-cased as a fallback.
func (ix *Index) DisplayTitle(normalized string) string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.displayLocked(normalized)
}

func (ix *Index) displayLocked(normalized string) string {
	forms := ix.canonical[normalized]
	if len(forms) == 0 {
		return titleCase(normalized)
	}
	best := ""
	for f := range forms {
		if best == "" || f < best {
			best = f
		}
	}
	return best
}

// PeriodicityBase strips every periodicity word from a normalized multi-word
// title and, when the remainder is a different registered title, returns its
// display form. Used both by lexical rule evaluation and the guideline
// checker.
func (ix *Index) PeriodicityBase(normalized string) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.periodicityBaseLocked(normalized)
}

func (ix *Index) periodicityBaseLocked(normalized string) (string, bool) {
	words := strings.Fields(normalized)
	if len(words) <= 1 {
		return "", false
	}
	stripped := words[:0:0]
	for _, w := range words {
		if _, periodic := ix.periodicity[w]; !periodic {
			stripped = append(stripped, w)
		}
	}
	if len(stripped) == len(words) {
		return "", false
	}
	base := strings.Join(stripped, " ")
	if base == "" || base == normalized {
		return "", false
	}
	if _, ok := ix.titles[base]; !ok {
		return "", false
	}
	return ix.displayLocked(base), true
}

// DetectConflicts normalizes rawTitle and runs the lexical conflict rules.
func (ix *Index) DetectConflicts(rawTitle string) ([]string, float64) {
	return ix.DetectConflictsNormalized(Normalize(rawTitle))
}

// DetectConflictsNormalized evaluates the lexical conflict rules against an
// already-normalized title. Rules run in order of specificity and the first
// hit wins, so the applicant always sees the most specific reason. The
// returned score is in [0, 100]; callers treat high scores as rejections.
//
// When no rule fires, the reasons are empty and the score is the best fuzzy
// ratio over the candidate set (possibly 0).
func (ix *Index) DetectConflictsNormalized(clean string) ([]string, float64) {
	if clean == "" {
		return []string{"Title cannot be empty after normalization."}, scoreExact
	}

	// The phonetic key is computed before taking the lock; it is a memoized
	// pure function. Trigrams are computed later, under the lock, by
	// candidatesLocked.
	queryKey := PhoneticKey(clean)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	words := strings.Fields(clean)

	// Rule: exact duplicate.
	if _, ok := ix.titles[clean]; ok {
		reason := fmt.Sprintf("Exact match found with existing title '%s'.", ix.displayLocked(clean))
		return []string{reason}, scoreExact
	}

	// Rule: same words, different order.
	if len(words) > 1 {
		sortedWords := append([]string(nil), words...)
		sort.Strings(sortedWords)
		if matched, ok := smallest(ix.sorted[strings.Join(sortedWords, " ")]); ok {
			reason := fmt.Sprintf("Word-order variation matches existing title '%s'.", ix.displayLocked(matched))
			return []string{reason}, scoreWordOrder
		}
	}

	// Rule: the query is the acronym of a registered multi-word title.
	if len(clean) <= acronymMaxLen && isAlpha(clean) {
		if matched, ok := smallest(ix.acronyms[clean]); ok {
			reason := fmt.Sprintf("Acronym collision with existing title '%s'.", ix.displayLocked(matched))
			return []string{reason}, scoreAcronym
		}
	}

	// Rule: same phonetic key and lexically close.
	if queryKey != "" {
		for _, matched := range sortedMembers(ix.phonetic[queryKey]) {
			if matched == clean {
				continue
			}
			if ratio := Ratio(clean, matched); ratio >= phoneticRatioMin {
				reason := fmt.Sprintf("Phonetic conflict with '%s' (lexical similarity %.1f%%).",
					ix.displayLocked(matched), ratio)
				return []string{reason}, max(scorePhoneticMin, ratio)
			}
		}
	}

	// Rule: registered title plus periodicity modifiers.
	if base, ok := ix.periodicityBaseLocked(clean); ok {
		reason := fmt.Sprintf("Periodicity modifier added to existing title '%s'.", base)
		return []string{reason}, scorePeriodicity
	}

	// Rule: concatenation of registered titles.
	if parts := ix.combinationLocked(clean, words); parts != nil {
		reason := fmt.Sprintf("Title appears to combine existing titles: %s.", strings.Join(parts, " + "))
		return []string{reason}, scoreCombination
	}

	// Rule: fuzzy similarity over the voted candidate set.
	bestScore := 0.0
	bestMatch := ""
	for _, candidate := range ix.candidatesLocked(clean, words) {
		if candidate == clean {
			continue
		}
		if score := Ratio(clean, candidate); score > bestScore {
			bestScore = score
			bestMatch = candidate
		}
	}
	if bestMatch != "" && bestScore >= fuzzyRatioMin {
		reason := fmt.Sprintf(
			"Spelling/transliteration variation too close to existing title '%s' (%.1f%% lexical match).",
			ix.displayLocked(bestMatch), bestScore)
		return []string{reason}, bestScore
	}

	return nil, bestScore
}

// candidatesLocked retrieves the fuzzy-comparison candidate set by weighted
// voting: shared tokens count 3, shared trigrams 1, and a shared first
// character within a length difference of firstCharLenSlack counts 1. The top
// maxCandidates titles by vote are kept; ties break toward earlier corpus
// insertion so results are stable.
func (ix *Index) candidatesLocked(clean string, words []string) []string {
	votes := make(map[string]int)

	seenTok := make(map[string]struct{}, len(words))
	for _, tok := range words {
		if _, dup := seenTok[tok]; dup {
			continue
		}
		seenTok[tok] = struct{}{}
		for candidate := range ix.tokens[tok] {
			votes[candidate] += 3
		}
	}

	for _, g := range Trigrams(clean) {
		for candidate := range ix.grams[g] {
			votes[candidate]++
		}
	}

	for candidate := range ix.firstChar[clean[0]] {
		diff := len(candidate) - len(clean)
		if diff < 0 {
			diff = -diff
		}
		if diff <= firstCharLenSlack {
			votes[candidate]++
		}
	}

	if len(votes) == 0 {
		return nil
	}

	ranked := make([]string, 0, len(votes))
	for candidate := range votes {
		ranked = append(ranked, candidate)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if votes[ranked[i]] != votes[ranked[j]] {
			return votes[ranked[i]] > votes[ranked[j]]
		}
		return ix.addedAt[ranked[i]] < ix.addedAt[ranked[j]]
	})
	if len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}
	return ranked
}

// combinationLocked finds the first partition of the token sequence into
// contiguous spans where every span is a registered title other than the
// full input. Dynamic programming over start positions keeps this linear in
// reachable positions; the greedy walk afterwards reproduces depth-first
// order (shortest first span wins).
//
// Because the full token sequence joined back together equals the input —
// which is excluded as a span — any partition found has at least two spans.
func (ix *Index) combinationLocked(clean string, words []string) []string {
	n := len(words)
	if n < 2 {
		return nil
	}

	valid := func(start, end int) bool {
		phrase := strings.Join(words[start:end], " ")
		if phrase == clean {
			return false
		}
		_, ok := ix.titles[phrase]
		return ok
	}

	// reachable[i] = the suffix words[i:] can be fully partitioned into valid spans.
	reachable := make([]bool, n+1)
	reachable[n] = true
	for start := n - 1; start >= 0; start-- {
		for end := start + 1; end <= n; end++ {
			if reachable[end] && valid(start, end) {
				reachable[start] = true
				break
			}
		}
	}
	if !reachable[0] {
		return nil
	}

	var parts []string
	for start := 0; start < n; {
		for end := start + 1; end <= n; end++ {
			if reachable[end] && valid(start, end) {
				parts = append(parts, ix.displayLocked(strings.Join(words[start:end], " ")))
				start = end
				break
			}
		}
	}
	return parts
}

// addTo inserts value into the set at m[key], allocating the set on first use.
func addTo(m map[string]map[string]struct{}, key, value string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[value] = struct{}{}
}

// smallest returns the lexicographically smallest member of a set. Go map
// iteration is randomized, so every "pick one" path goes through here to keep
// reasons deterministic.
func smallest(set map[string]struct{}) (string, bool) {
	best := ""
	found := false
	for member := range set {
		if !found || member < best {
			best = member
			found = true
		}
	}
	return best, found
}

// sortedMembers returns the members of a set in lexicographic order.
func sortedMembers(set map[string]struct{}) []string {
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

// acronym concatenates the first character of each token.
func acronym(words []string) string {
	var b strings.Builder
	for _, w := range words {
		if w != "" {
			b.WriteByte(w[0])
		}
	}
	return b.String()
}

// isAlpha reports whether s consists solely of ASCII letters.
func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// titleCase uppercases the first letter of each token; fallback display form
// for titles with no recorded raw spelling.
func titleCase(normalized string) string {
	words := strings.Fields(normalized)
	for i, w := range words {
		if w[0] >= 'a' && w[0] <= 'z' {
			words[i] = string(w[0]-'a'+'A') + w[1:]
		}
	}
	return strings.Join(words, " ")
}
