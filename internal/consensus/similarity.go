package consensus

import "github.com/solguard-dev/solguard/internal/findings"

// tokenSimilarity is the Jaccard index over the stemmed token sets of the two
// titles. Empty titles never match anything.
func tokenSimilarity(a, b string) float64 {
	ta := findings.TitleTokens(a)
	tb := findings.TitleTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		set[t] = struct{}{}
	}

	shared := 0
	for _, t := range tb {
		if _, ok := set[t]; ok {
			shared++
		}
	}

	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}
