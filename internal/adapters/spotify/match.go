package spotify

import "strings"

// MatchThreshold is the minimum ScoreQuery a candidate needs to be accepted.
const MatchThreshold = 0.8

// ScoreQuery compares a free-form "artist title" query with a catalog track.
// Both word orders are tried since callers build the query either way. The
// track is scored once with its primary artist and once with every credited
// artist, and the better score wins.
func ScoreQuery(query string, artists []string, title string) float64 {
	target := Normalize(query)
	t := Normalize(title)
	if target == "" {
		return 0
	}

	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if n := Normalize(a); n != "" {
			names = append(names, n)
		}
	}
	credits := []string{""}
	if len(names) > 0 {
		credits = []string{names[0]}
		if len(names) > 1 {
			credits = append(credits, strings.Join(names, " "))
		}
	}
	if t == "" && len(names) == 0 {
		return 0
	}

	best := 0.0
	for _, a := range credits {
		forward := strings.TrimSpace(a + " " + t)
		reverse := strings.TrimSpace(t + " " + a)
		best = max(best, similarity(target, forward), similarity(target, reverse))
	}
	return best
}

func similarity(a string, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshteinDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}

func levenshteinDistance(a string, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)
		}
		copy(prev, curr)
	}

	return prev[len(rb)]
}
