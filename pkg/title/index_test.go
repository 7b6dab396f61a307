package title_test

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/verifyxo/engine/pkg/title"
)

func newIndex(t *testing.T, titles ...string) *title.Index {
	t.Helper()
	ix := title.NewIndex()
	ix.Extend(titles)
	return ix
}

func TestDetectConflicts_ExactMatch(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Indian Express")

	reasons, score := ix.DetectConflicts("Indian Express")
	if score != 100.0 {
		t.Fatalf("score = %v, want 100.0", score)
	}
	if len(reasons) != 1 || !strings.HasPrefix(reasons[0], "Exact match") {
		t.Errorf("reasons = %v, want one reason starting with %q", reasons, "Exact match")
	}
}

func TestDetectConflicts_EmptyTitle(t *testing.T) {
	t.Parallel()

	ix := newIndex(t)

	reasons, score := ix.DetectConflicts("   .,—   ")
	if score != 100.0 {
		t.Fatalf("score = %v, want 100.0", score)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "empty") {
		t.Errorf("reasons = %v, want an empty-title reason", reasons)
	}
}

func TestDetectConflicts_WordOrderVariation(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Indian Express")

	reasons, score := ix.DetectConflicts("Express Indian")
	if score < 99.0 {
		t.Fatalf("score = %v, want >= 99.0", score)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "Word-order variation") {
		t.Errorf("reasons = %v, want a word-order reason", reasons)
	}
}

func TestDetectConflicts_AcronymCollision(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Indian Express")

	reasons, score := ix.DetectConflicts("IE")
	if score != 98.0 {
		t.Fatalf("score = %v, want 98.0", score)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "Acronym collision") {
		t.Errorf("reasons = %v, want an acronym reason", reasons)
	}
}

func TestDetectConflicts_PhoneticConflict(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Daily News")

	reasons, score := ix.DetectConflicts("Daly News")
	if score < 92.0 {
		t.Fatalf("score = %v, want >= 92.0", score)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "Phonetic conflict") {
		t.Errorf("reasons = %v, want a phonetic reason", reasons)
	}
}

func TestDetectConflicts_PeriodicityExtension(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Morning Herald")

	reasons, score := ix.DetectConflicts("Daily Morning Herald")
	if score < 90.0 {
		t.Fatalf("score = %v, want >= 90.0", score)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "Periodicity modifier") {
		t.Errorf("reasons = %v, want a periodicity reason", reasons)
	}
}

func TestDetectConflicts_Combination(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Hindu", "Indian Express")

	reasons, score := ix.DetectConflicts("Hindu Indian Express")
	if score < 90.0 {
		t.Fatalf("score = %v, want >= 90.0", score)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "combine existing titles") {
		t.Fatalf("reasons = %v, want a combination reason", reasons)
	}
	if !strings.Contains(reasons[0], "Hindu + Indian Express") {
		t.Errorf("reason = %q, want spans joined as %q", reasons[0], "Hindu + Indian Express")
	}
}

func TestDetectConflicts_FuzzyCandidate(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Indian Express", "Morning Herald", "Deccan Chronicle")

	// "indiam express" differs phonetically (M vs N) so the fuzzy rule, not
	// the phonetic rule, must decide.
	reasons, score := ix.DetectConflicts("Indiam Express")
	if score < 80.0 {
		t.Fatalf("score = %v, want >= 80.0", score)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "Spelling/transliteration variation") {
		t.Errorf("reasons = %v, want a fuzzy-spelling reason", reasons)
	}
}

func TestDetectConflicts_NoConflict(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Indian Express", "Morning Herald")

	reasons, score := ix.DetectConflicts("Quantum Chronicle")
	if len(reasons) != 0 {
		t.Errorf("reasons = %v, want none", reasons)
	}
	if score < 0 || score >= 80 {
		t.Errorf("score = %v, want in [0, 80)", score)
	}
}

func TestDetectConflicts_ScoreAlwaysInRange(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Indian Express", "Hindu", "Morning Herald", "Daily Awaz")

	queries := []string{
		"", "Indian Express", "Express Indian", "IE", "Daly News",
		"Daily Morning Herald", "Hindu Morning Herald", "Something Else Entirely",
		"खबर", "N3w T1mes!",
	}
	for _, q := range queries {
		_, score := ix.DetectConflicts(q)
		if score < 0 || score > 100 {
			t.Errorf("DetectConflicts(%q) score = %v outside [0, 100]", q, score)
		}
	}
}

func TestDetectConflicts_ReasonsAreDeterministic(t *testing.T) {
	t.Parallel()

	// Two corpus titles share the sort key of the query; the reported match
	// must be stable across runs despite map iteration order.
	ix := newIndex(t, "Express Daily Indian", "Indian Daily Express")

	first, _ := ix.DetectConflicts("Daily Indian Express")
	for i := 0; i < 20; i++ {
		again, _ := ix.DetectConflicts("Daily Indian Express")
		if len(again) != len(first) || again[0] != first[0] {
			t.Fatalf("run %d: reasons %v differ from first run %v", i, again, first)
		}
	}
}

func TestIndex_AddThenDetectIsExact(t *testing.T) {
	t.Parallel()

	ix := title.NewIndex()
	raws := []string{"The Awaz!", "Nam4skar Times", "  Padded  Spaces  "}
	for _, raw := range raws {
		ix.Add(raw)
		reasons, score := ix.DetectConflicts(raw)
		if score != 100.0 {
			t.Errorf("DetectConflicts(%q) score = %v, want 100.0", raw, score)
		}
		if len(reasons) == 0 || !strings.HasPrefix(reasons[len(reasons)-1], "Exact match") {
			t.Errorf("DetectConflicts(%q) reasons = %v, want an exact-match reason", raw, reasons)
		}
	}
}

func TestIndex_EmptyNormalizationIgnored(t *testing.T) {
	t.Parallel()

	ix := title.NewIndex()
	ix.Add("   ")
	ix.Add("§¶")
	if got := ix.Len(); got != 0 {
		t.Errorf("Len() = %d after adding unnormalizable titles, want 0", got)
	}
}

func TestIndex_ClearRestoresEmpty(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Indian Express", "Hindu", "Daily Awaz")
	if ix.Len() == 0 {
		t.Fatal("setup: index is empty")
	}

	ix.Clear()

	if got := ix.Len(); got != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", got)
	}
	if ix.Contains("indian express") {
		t.Error("Contains(\"indian express\") = true after Clear")
	}
	if reasons, score := ix.DetectConflicts("Indian Express"); score != 0 || len(reasons) != 0 {
		t.Errorf("DetectConflicts after Clear = (%v, %v), want no conflict", reasons, score)
	}

	// The index must be fully usable after Clear.
	ix.Add("Indian Express")
	if _, score := ix.DetectConflicts("Indian Express"); score != 100.0 {
		t.Error("exact match not detected after Clear and re-Add")
	}
}

func TestIndex_DisplayTitlePicksSmallestRawForm(t *testing.T) {
	t.Parallel()

	ix := title.NewIndex()
	// All three normalize to "the hindu"; the smallest raw form must win.
	ix.Add("the hindu")
	ix.Add("THE HINDU")
	ix.Add("The Hindu")

	if got := ix.DisplayTitle("the hindu"); got != "THE HINDU" {
		t.Errorf("DisplayTitle = %q, want %q (lexicographically smallest raw form)", got, "THE HINDU")
	}
}

func TestIndex_ContainsNormalizedForms(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "The Daily-News!")
	if !ix.Contains("the daily newsb") {
		t.Error("Contains(normalized form) = false, want true")
	}
	if ix.Contains("The Daily-News!") {
		t.Error("Contains(raw form) = true, want false — the index keys on normalized forms")
	}
}

func TestPeriodicityBase(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Morning Herald")

	tests := []struct {
		name     string
		query    string
		wantBase string
		wantOK   bool
	}{
		{"periodicity stripped to base", "daily morning herald", "Morning Herald", true},
		{"no periodicity token", "evening morning herald", "", false},
		{"single word", "daily", "", false},
		{"base not registered", "daily evening star", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			base, ok := ix.PeriodicityBase(tc.query)
			if ok != tc.wantOK || base != tc.wantBase {
				t.Errorf("PeriodicityBase(%q) = (%q, %v), want (%q, %v)",
					tc.query, base, ok, tc.wantBase, tc.wantOK)
			}
		})
	}
}

func TestIndex_ExtraPeriodicityWords(t *testing.T) {
	t.Parallel()

	ix := title.NewIndex(title.WithPeriodicityWords("quarterly"))
	ix.Add("Trade Review")

	reasons, score := ix.DetectConflicts("Quarterly Trade Review")
	if score != 96.0 {
		t.Fatalf("score = %v, want 96.0", score)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "Periodicity modifier") {
		t.Errorf("reasons = %v, want a periodicity reason", reasons)
	}
}

// letters used for random title generation in the property tests.
const letters = "abcdefghijklmnopqrstuvwxyz"

func randomWord(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}

func TestProperty_ExactDuplicateAlwaysRejects(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	ix := title.NewIndex()

	var corpus []string
	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("%s %s", randomWord(rng, 4+rng.Intn(6)), randomWord(rng, 4+rng.Intn(6)))
		corpus = append(corpus, name)
		ix.Add(name)
	}

	for _, c := range corpus {
		if _, score := ix.DetectConflicts(c); score != 100.0 {
			t.Fatalf("DetectConflicts(%q) score = %v, want 100.0", c, score)
		}
	}
}

func TestProperty_SingleCharPerturbationRejects(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(11))
	ix := title.NewIndex()

	var corpus []string
	for i := 0; i < 100; i++ {
		name := randomWord(rng, 8+rng.Intn(5))
		corpus = append(corpus, name)
		ix.Add(name)
	}

	for i := 0; i < 50; i++ {
		base := corpus[rng.Intn(len(corpus))]
		pos := rng.Intn(len(base))
		// Substitute one character for a different letter.
		var sub byte
		for {
			sub = letters[rng.Intn(len(letters))]
			if sub != base[pos] {
				break
			}
		}
		perturbed := base[:pos] + string(sub) + base[pos+1:]
		if ix.Contains(perturbed) {
			continue // collided with another corpus title
		}
		if _, score := ix.DetectConflicts(perturbed); score < 80.0 {
			t.Errorf("DetectConflicts(%q) (from %q) score = %v, want >= 80", perturbed, base, score)
		}
	}
}

func TestProperty_FreshRandomTokensPassLexicalThreshold(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(13))
	ix := title.NewIndex()
	for i := 0; i < 100; i++ {
		ix.Add(fmt.Sprintf("%s %s", randomWord(rng, 5+rng.Intn(4)), randomWord(rng, 5+rng.Intn(4))))
	}

	for i := 0; i < 50; i++ {
		query := fmt.Sprintf("%s %s %s",
			randomWord(rng, 12), randomWord(rng, 12), randomWord(rng, 12))
		if ix.Contains(title.Normalize(query)) {
			continue
		}
		if _, score := ix.DetectConflicts(query); score >= 82.0 {
			t.Errorf("DetectConflicts(%q) score = %v, want < 82", query, score)
		}
	}
}

func TestIndex_ConcurrentReadsAndWrites(t *testing.T) {
	t.Parallel()

	ix := newIndex(t, "Indian Express", "Hindu", "Morning Herald")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			ix.Add(fmt.Sprintf("Gazette %d", i))
		}
	}()
	for i := 0; i < 200; i++ {
		ix.DetectConflicts("Indian Express")
		ix.Contains("hindu")
		ix.Len()
	}
	<-done
}
