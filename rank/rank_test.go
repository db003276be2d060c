package rank

import (
	"math"
	"testing"

	"github.com/xraph/handoff/candidate"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/match"
)

func floatPtr(v float64) *float64 { return &v }

func TestScoreWeights(t *testing.T) {
	t.Parallel()

	// A perfect candidate: zero distance, instant responses, full
	// completion rate, at the experience ceiling.
	perfect := match.Match{
		Candidate: &candidate.Candidate{
			ID:                 id.NewCandidateID(),
			AvgResponseMinutes: floatPtr(0),
			CompletionRate:     floatPtr(1),
			JobsCompleted:      100,
		},
		DistanceKm: 0,
	}
	if got := Score(perfect); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("perfect score = %v, want 1.0", got)
	}

	// A candidate at every floor scores zero.
	worst := match.Match{
		Candidate: &candidate.Candidate{
			ID:                 id.NewCandidateID(),
			AvgResponseMinutes: floatPtr(30),
			CompletionRate:     floatPtr(0),
			JobsCompleted:      0,
		},
		DistanceKm: 50,
	}
	if got := Score(worst); got != 0 {
		t.Errorf("floor score = %v, want 0", got)
	}
}

func TestScoreNeutralWithoutHistory(t *testing.T) {
	t.Parallel()

	m := match.Match{
		Candidate:  &candidate.Candidate{ID: id.NewCandidateID()},
		DistanceKm: 0,
	}

	// Distance 1.0, response and completion neutral at 0.5, experience 0.
	want := WeightDistance*1.0 + WeightResponse*0.5 + WeightCompletion*0.5
	if got := Score(m); math.Abs(got-want) > 1e-9 {
		t.Errorf("no-history score = %v, want %v", got, want)
	}
}

func TestScoreClampsOutOfRangeInputs(t *testing.T) {
	t.Parallel()

	m := match.Match{
		Candidate: &candidate.Candidate{
			ID:                 id.NewCandidateID(),
			AvgResponseMinutes: floatPtr(500),
			CompletionRate:     floatPtr(1.5),
			JobsCompleted:      100000,
		},
		DistanceKm: 400,
	}

	want := WeightCompletion*1.0 + WeightExperience*1.0
	if got := Score(m); math.Abs(got-want) > 1e-9 {
		t.Errorf("clamped score = %v, want %v", got, want)
	}
}

func TestRankOrdering(t *testing.T) {
	t.Parallel()

	strong := match.Match{
		Candidate:  &candidate.Candidate{ID: id.NewCandidateID(), CompletionRate: floatPtr(1), JobsCompleted: 100},
		DistanceKm: 1,
	}
	weak := match.Match{
		Candidate:  &candidate.Candidate{ID: id.NewCandidateID(), CompletionRate: floatPtr(0.2)},
		DistanceKm: 40,
	}

	ranked := Rank([]match.Match{weak, strong})
	if len(ranked) != 2 {
		t.Fatalf("ranked = %d entries, want 2", len(ranked))
	}
	if ranked[0].Candidate.ID.String() != strong.Candidate.ID.String() {
		t.Error("strong candidate should rank first")
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("scores not descending: %v then %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestRankTieBreaksByDistanceThenID(t *testing.T) {
	t.Parallel()

	// Identical history, different distance: nearer wins.
	a := match.Match{Candidate: &candidate.Candidate{ID: id.NewCandidateID()}, DistanceKm: 10}
	b := match.Match{Candidate: &candidate.Candidate{ID: id.NewCandidateID()}, DistanceKm: 10}
	c := match.Match{Candidate: &candidate.Candidate{ID: id.NewCandidateID()}, DistanceKm: 5}

	// a and b tie on score and distance; the winner is the smaller ID.
	wantFirst := a.Candidate.ID.String()
	if b.Candidate.ID.String() < wantFirst {
		wantFirst = b.Candidate.ID.String()
	}

	ranked := Rank([]match.Match{a, b, c})
	if ranked[0].Candidate.ID.String() != c.Candidate.ID.String() {
		t.Error("nearest candidate should rank first on equal history")
	}
	if ranked[1].Candidate.ID.String() != wantFirst {
		t.Error("equal score and distance should tie-break by candidate ID")
	}
}

func TestRankEmpty(t *testing.T) {
	t.Parallel()

	if got := Rank(nil); len(got) != 0 {
		t.Errorf("ranking nothing returned %d entries", len(got))
	}
}
