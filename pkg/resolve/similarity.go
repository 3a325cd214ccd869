package resolve

import "strings"

// Similarity scores how likely two entity mentions refer to the same
// thing, in [0, 1]. It takes the maximum of three signals: normalized
// edit distance, a containment floor of 0.9 when one string contains
// the other, and token-set overlap. Comparison is case-insensitive.
func Similarity(a, b string) float64 {
	e1 := strings.ToLower(a)
	e2 := strings.ToLower(b)

	if e1 == e2 {
		return 1.0
	}

	ratio := editRatio(e1, e2)

	if strings.Contains(e1, e2) || strings.Contains(e2, e1) {
		ratio = max(ratio, 0.9)
	}

	words1 := tokenSet(e1)
	words2 := tokenSet(e2)
	if len(words1) > 0 && len(words2) > 0 {
		overlap := 0
		for w := range words1 {
			if _, ok := words2[w]; ok {
				overlap++
			}
		}
		ratio = max(ratio, float64(overlap)/float64(max(len(words1), len(words2))))
	}

	return ratio
}

// editRatio is 1 - levenshtein(a, b) / max(len(a), len(b)), computed
// over runes.
func editRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(s) {
		set[word] = struct{}{}
	}
	return set
}
