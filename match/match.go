// Package match implements the candidate matcher: a pure filter over the
// provider registry that decides which candidates are eligible for a job.
// No ordering happens here; ranking is the rank package's business.
package match

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/handoff/candidate"
	"github.com/xraph/handoff/geo"
	"github.com/xraph/handoff/job"
)

// Match is one eligible candidate together with the distance from their
// service center to the job, computed once here and carried through ranking
// into the offer snapshot.
type Match struct {
	Candidate  *candidate.Candidate
	DistanceKm float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithClock overrides the matcher's time source. Used by tests to pin the
// operating-hours check.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) { m.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// Matcher filters the provider registry down to the candidates eligible
// for a job: active, verified, offering the job's category, job location
// inside the service radius, and currently within operating hours.
type Matcher struct {
	registry candidate.Registry
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Matcher over the given registry.
func New(registry candidate.Registry, opts ...Option) *Matcher {
	m := &Matcher{
		registry: registry,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns the eligible candidates for a job. A job without a location
// matches nothing: the matcher will not guess where the work is.
func (m *Matcher) Match(ctx context.Context, j *job.Job) ([]Match, error) {
	if j.Location == nil {
		m.logger.Info("job has no location, nothing to match",
			slog.String("job_id", j.ID.String()),
			slog.String("category", j.Category),
		)
		return nil, nil
	}

	candidates, err := m.registry.FindEligible(ctx, j.Category)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if !Eligible(c, j.Category, now) {
			continue
		}

		distance := geo.DistanceKm(c.ServiceCenter, *j.Location)
		if distance > c.RadiusKm {
			continue
		}

		matches = append(matches, Match{Candidate: c, DistanceKm: distance})
	}

	return matches, nil
}

// Eligible applies the location-independent filters: active, verified,
// category offered, operating hours covering now.
func Eligible(c *candidate.Candidate, category string, now time.Time) bool {
	if !c.Active || !c.Verified {
		return false
	}
	if !c.OffersCategory(category) {
		return false
	}
	return c.Hours.Covers(now)
}
