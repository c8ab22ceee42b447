// Package similarity provides normalized edit-distance scoring used to match
// incoming free-text questions against previously answered ones.
package similarity

import "strings"

// Distance computes the Levenshtein edit distance between a and b.
// Insertions, deletions and substitutions all cost 1.
func Distance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Two-row dynamic programming table.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Score computes normalized similarity: 1 - distance/max(len(a), len(b)).
// Identical non-empty strings score 1.0; if either string is empty the
// score is 0 regardless of the other.
func Score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	la := len([]rune(a))
	lb := len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}

	return 1 - float64(Distance(a, b))/float64(longest)
}

// Normalize lowercases, trims and collapses internal whitespace so that
// trivially different phrasings of a question compare equal.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// BestMatch returns the candidate with the highest Score against input,
// considering only candidates whose score strictly exceeds threshold.
// Returns ok=false when no candidate qualifies.
func BestMatch(input string, candidates []string, threshold float64) (best string, score float64, ok bool) {
	normalized := Normalize(input)
	for _, c := range candidates {
		s := Score(normalized, Normalize(c))
		if s > threshold && s > score {
			best = c
			score = s
			ok = true
		}
	}
	return best, score, ok
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
