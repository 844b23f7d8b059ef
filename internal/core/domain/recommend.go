package domain

import (
	"math"
	"sort"
	"strings"
)

// MaxRecommendations caps the recommendation list.
const MaxRecommendations = 5

// Recommendation is a previously analyzed profile ranked against a seed.
type Recommendation struct {
	Profile TrackProfile `json:"profile"`
	Score   float64      `json:"score"`
}

// Recommend ranks pool against seed by tempo distance, harmonic compatibility
// and genre. With strict set, only Camelot-compatible profiles qualify.
func Recommend(seed TrackProfile, pool []TrackProfile, strict bool) []Recommendation {
	if seed.Primary == nil {
		return []Recommendation{}
	}

	scored := make([]Recommendation, 0, len(pool))
	for _, p := range pool {
		if p.ID == seed.ID || p.Primary == nil {
			continue
		}
		compatible := CamelotCompatible(p.Primary.CamelotKey, seed.Primary.CamelotKey)
		if strict && !compatible {
			continue
		}

		score := math.Max(0, 50-math.Abs(p.Primary.BPM-seed.Primary.BPM)*5)
		if compatible {
			score += 30
		}
		if p.Primary.Genre != "" && strings.EqualFold(p.Primary.Genre, seed.Primary.Genre) {
			score += 20
		}
		scored = append(scored, Recommendation{Profile: p, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > MaxRecommendations {
		scored = scored[:MaxRecommendations]
	}
	return scored
}
