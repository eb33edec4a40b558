package validation

import (
	"slices"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Similarity scores how alike two names are, in [0,1].
type Similarity interface {
	Similarity(a, b string) float64
}

// SimilarityFunc adapts a function to Similarity.
type SimilarityFunc func(a, b string) float64

func (f SimilarityFunc) Similarity(a, b string) float64 { return f(a, b) }

// TokenSimilarity compares names case- and diacritic-insensitively and
// tolerates reordered, missing or run-together tokens. The score is the best
// of a whole-string ratio, a token-set ratio and a partial ratio, each based
// on the longest common subsequence.
type TokenSimilarity struct{}

func (TokenSimilarity) Similarity(a, b string) float64 {
	left, right := NormalizeName(a), NormalizeName(b)
	if left == "" || right == "" {
		return 0
	}
	return max(ratio(left, right), tokenSetRatio(left, right), partialRatio(left, right))
}

var folder = cases.Fold()

// NormalizeName decomposes, strips combining marks, case folds and replaces
// punctuation with spaces.
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = folder.String(out)
	out = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, out)
	return strings.Join(strings.Fields(out), " ")
}

// ratio is 2*LCS/(len(a)+len(b)) over runes.
func ratio(a, b string) float64 {
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 1
	}
	return 2 * float64(edlib.LCS(a, b)) / float64(total)
}

// tokenSetRatio compares the shared tokens against each side's full token
// set, so extra or reordered tokens cost little.
func tokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	var inter, onlyA, onlyB []string
	for _, t := range ta {
		if slices.Contains(tb, t) {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tb {
		if !slices.Contains(ta, t) {
			onlyB = append(onlyB, t)
		}
	}
	if len(inter) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 1
	}
	sect := strings.Join(inter, " ")
	combA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))
	best := ratio(combA, combB)
	if sect != "" {
		best = max(best, ratio(sect, combA), ratio(sect, combB))
	}
	return best
}

func tokenSet(s string) []string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return slices.Compact(tokens)
}

// partialRatio aligns the shorter string against every same-length window of
// the longer one.
func partialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		best = max(best, ratio(s, string(long[i:i+len(short)])))
		if best == 1 {
			break
		}
	}
	return best
}
