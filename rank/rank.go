// Package rank scores and orders matched candidates. The ordering is
// deterministic so dispatch waves are reproducible: score descending, then
// distance ascending, then candidate ID.
package rank

import (
	"sort"

	"github.com/xraph/handoff/match"
)

// Score weights. They sum to 1 so the composite stays in [0,1].
const (
	WeightDistance   = 0.4
	WeightResponse   = 0.3
	WeightCompletion = 0.2
	WeightExperience = 0.1
)

const (
	// maxDistanceKm is where the distance contribution reaches zero.
	maxDistanceKm = 50.0
	// maxResponseMinutes is where the responsiveness contribution reaches zero.
	maxResponseMinutes = 30.0
	// experienceCeiling is the completed-job count that earns full experience credit.
	experienceCeiling = 100.0
	// neutralScore is used for factors with no history.
	neutralScore = 0.5
)

// Ranked is a matched candidate with its composite score.
type Ranked struct {
	match.Match
	Score float64
}

// Score computes the weighted composite score for a single match.
func Score(m match.Match) float64 {
	return WeightDistance*distanceScore(m.DistanceKm) +
		WeightResponse*responseScore(m.Candidate.AvgResponseMinutes) +
		WeightCompletion*completionScore(m.Candidate.CompletionRate) +
		WeightExperience*experienceScore(m.Candidate.JobsCompleted)
}

// Rank scores all matches and returns them in dispatch order.
func Rank(matches []match.Match) []Ranked {
	ranked := make([]Ranked, len(matches))
	for i, m := range matches {
		ranked[i] = Ranked{Match: m, Score: Score(m)}
	}

	sort.Slice(ranked, func(i, k int) bool {
		if ranked[i].Score != ranked[k].Score {
			return ranked[i].Score > ranked[k].Score
		}
		if ranked[i].DistanceKm != ranked[k].DistanceKm {
			return ranked[i].DistanceKm < ranked[k].DistanceKm
		}
		return ranked[i].Candidate.ID.String() < ranked[k].Candidate.ID.String()
	})

	return ranked
}

func distanceScore(km float64) float64 {
	return clamp01(1 - km/maxDistanceKm)
}

func responseScore(avgMinutes *float64) float64 {
	if avgMinutes == nil {
		return neutralScore
	}
	return clamp01(1 - *avgMinutes/maxResponseMinutes)
}

func completionScore(rate *float64) float64 {
	if rate == nil {
		return neutralScore
	}
	return clamp01(*rate)
}

func experienceScore(completed int) float64 {
	return clamp01(float64(completed) / experienceCeiling)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
