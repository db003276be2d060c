package match_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/candidate"
	"github.com/xraph/handoff/geo"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/job"
	"github.com/xraph/handoff/match"
)

var site = geo.Point{Lat: 52.5200, Lng: 13.4050}

func testJob() *job.Job {
	return &job.Job{
		Entity:   handoff.NewEntity(),
		ID:       id.NewJobID(),
		Category: "electrical",
		Location: &site,
		Status:   job.StatusUnassigned,
	}
}

func eligible() *candidate.Candidate {
	return &candidate.Candidate{
		ID:            id.NewCandidateID(),
		Active:        true,
		Verified:      true,
		Categories:    []string{"electrical"},
		ServiceCenter: site,
		RadiusKm:      25,
	}
}

// noon pins the hours check to a Monday at 12:00 UTC.
var noon = time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)

func newMatcher(candidates ...*candidate.Candidate) *match.Matcher {
	return match.New(candidate.NewStatic(candidates...),
		match.WithClock(func() time.Time { return noon }),
	)
}

func TestMatchFilters(t *testing.T) {
	t.Parallel()

	good := eligible()

	inactive := eligible()
	inactive.Active = false

	unverified := eligible()
	unverified.Verified = false

	wrongCategory := eligible()
	wrongCategory.Categories = []string{"plumbing"}

	outOfRange := eligible()
	outOfRange.ServiceCenter = geo.Point{Lat: site.Lat + 1.0, Lng: site.Lng}

	closedToday := eligible()
	closedToday.Hours = candidate.Hours{
		time.Tuesday: {Open: candidate.MinuteOfDay(9, 0), Close: candidate.MinuteOfDay(17, 0)},
	}

	m := newMatcher(good, inactive, unverified, wrongCategory, outOfRange, closedToday)

	matches, err := m.Match(context.Background(), testJob())
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Candidate.ID.String() != good.ID.String() {
		t.Errorf("matched %s, want the fully eligible candidate", matches[0].Candidate.ID)
	}
	if matches[0].DistanceKm != 0 {
		t.Errorf("distance = %v, want 0 for co-located candidate", matches[0].DistanceKm)
	}
}

func TestMatchHonorsOperatingHours(t *testing.T) {
	t.Parallel()

	open := eligible()
	open.Hours = candidate.Hours{
		time.Monday: {Open: candidate.MinuteOfDay(9, 0), Close: candidate.MinuteOfDay(17, 0)},
	}

	closedAtNoon := eligible()
	closedAtNoon.Hours = candidate.Hours{
		time.Monday: {Open: candidate.MinuteOfDay(14, 0), Close: candidate.MinuteOfDay(22, 0)},
	}

	m := newMatcher(open, closedAtNoon)

	matches, err := m.Match(context.Background(), testJob())
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Candidate.ID.String() != open.ID.String() {
		t.Error("only the candidate open at dispatch time should match")
	}
}

func TestMatchJobWithoutLocation(t *testing.T) {
	t.Parallel()

	m := newMatcher(eligible())

	j := testJob()
	j.Location = nil

	matches, err := m.Match(context.Background(), j)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("location-less job matched %d candidates, want 0", len(matches))
	}
}

func TestMatchRadiusBoundary(t *testing.T) {
	t.Parallel()

	// Roughly 22 km north of the site; inside a 25 km radius, outside 20.
	inside := eligible()
	inside.ServiceCenter = geo.Point{Lat: site.Lat + 0.2, Lng: site.Lng}
	inside.RadiusKm = 25

	outside := eligible()
	outside.ServiceCenter = geo.Point{Lat: site.Lat + 0.2, Lng: site.Lng}
	outside.RadiusKm = 20

	m := newMatcher(inside, outside)

	matches, err := m.Match(context.Background(), testJob())
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Candidate.ID.String() != inside.ID.String() {
		t.Error("only the candidate whose radius covers the job should match")
	}
}
