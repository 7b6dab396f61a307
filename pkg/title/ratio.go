package title

import (
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Ratio computes the indel-based similarity of two strings on a 0–100 scale:
// the normalized complement of the minimal number of insertions and deletions
// required to turn one string into the other.
//
// With lcs the longest-common-subsequence length, the indel distance is
// len(a)+len(b)−2·lcs, which normalizes to 200·lcs/(len(a)+len(b)).
// Two empty strings are identical (100).
func Ratio(a, b string) float64 {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 100
	}
	lcs := edlib.LCS(a, b)
	return 200 * float64(lcs) / float64(la+lb)
}
