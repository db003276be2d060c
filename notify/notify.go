// Package notify defines the notification dispatcher interface the engine
// calls once per created offer. Delivery failures are logged by the caller
// and never roll back offer creation.
package notify

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/xraph/handoff/id"
)

// JobSummary is the minimal job description sent to a candidate with an
// offer.
type JobSummary struct {
	JobID       id.JobID   `json:"job_id"`
	OfferID     id.OfferID `json:"offer_id"`
	Category    string     `json:"category"`
	DistanceKm  float64    `json:"distance_km"`
	SLADeadline time.Time  `json:"sla_deadline"`
}

// Notifier delivers offer notifications to candidates.
type Notifier interface {
	NotifyOffer(ctx context.Context, candidateID id.CandidateID, summary JobSummary) error
}

// Func is an adapter to use a plain function as a Notifier.
type Func func(ctx context.Context, candidateID id.CandidateID, summary JobSummary) error

func (f Func) NotifyOffer(ctx context.Context, candidateID id.CandidateID, summary JobSummary) error {
	return f(ctx, candidateID, summary)
}

// Noop discards every notification.
type Noop struct{}

func (Noop) NotifyOffer(context.Context, id.CandidateID, JobSummary) error { return nil }

// Throttled wraps a Notifier with a token-bucket rate limit so a burst of
// wave dispatches cannot overwhelm the delivery provider. Waits for a slot
// rather than dropping, honoring context cancellation.
type Throttled struct {
	next    Notifier
	limiter *rate.Limiter
}

// NewThrottled wraps next with the given sustained rate and burst.
func NewThrottled(next Notifier, perSecond float64, burst int) *Throttled {
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// NotifyOffer waits for a rate-limit slot and delegates.
func (t *Throttled) NotifyOffer(ctx context.Context, candidateID id.CandidateID, summary JobSummary) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.next.NotifyOffer(ctx, candidateID, summary)
}
