package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// DefaultThreshold is the minimum token-sort ratio (0-100) a candidate needs
// before it counts as a match at all.
const DefaultThreshold = 70

// Matcher compares a required term against the terms a manufacturer offers.
type Matcher struct {
	Threshold int
}

// NewMatcher returns a Matcher gated at threshold. Values outside 0-100 fall
// back to DefaultThreshold.
func NewMatcher(threshold int) Matcher {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}
	return Matcher{Threshold: threshold}
}

// BestMatch returns the best token-sort similarity between target and any
// candidate as a value in [0,1]. Ratios below the threshold score 0.
func (m Matcher) BestMatch(target string, candidates []string) float64 {
	if strings.TrimSpace(target) == "" || len(candidates) == 0 {
		return 0
	}
	best := 0
	for _, c := range candidates {
		if r := TokenSortRatio(target, c); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	if best < m.Threshold {
		return 0
	}
	return float64(best) / 100.0
}

// AverageMatch averages BestMatch over every non-empty target.
// It returns 0 when there is nothing to compare.
func (m Matcher) AverageMatch(targets []string, candidates []string) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum float64
	n := 0
	for _, t := range targets {
		if strings.TrimSpace(t) == "" {
			continue
		}
		sum += m.BestMatch(t, candidates)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// TokenSortRatio lowercases both strings, strips punctuation, sorts the
// tokens and returns a 0-100 similarity of the rejoined strings.
func TokenSortRatio(a, b string) int {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// Ratio is the normalised InDel similarity of two strings scaled to 0-100:
// twice the longest common subsequence over the combined rune length.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(2*lcsLength(ra, rb)) / float64(total)))
}

// lcsLength keeps two rows of the LCS table, sized by the shorter input.
func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for _, ca := range a {
		for j, cb := range b {
			switch {
			case ca == cb:
				cur[j+1] = prev[j] + 1
			case prev[j+1] >= cur[j]:
				cur[j+1] = prev[j+1]
			default:
				cur[j+1] = cur[j]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func sortedTokens(s string) string {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// HasAny reports whether at least one entry is non-blank.
func HasAny(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
