package offer

import (
	"context"
	"time"

	"github.com/xraph/handoff/id"
)

// Response carries the fields a terminal transition writes alongside the
// status change.
type Response struct {
	// At becomes the offer's RespondedAt timestamp.
	At time.Time
	// DeclineReason and DeclineNotes are persisted only on declines.
	DeclineReason string
	DeclineNotes  string
}

// Store defines the persistence contract for offers. Implementations must
// make TransitionOffer and CancelPending conditional updates ("set status
// only where current status is pending") so concurrent accept, decline and
// deadline deliveries serialize per offer without external locks.
type Store interface {
	// CreateOffers persists a batch of new offers atomically. It fails
	// with handoff.ErrDuplicateOffer if any (job, candidate) pair already
	// has an offer, leaving nothing created.
	CreateOffers(ctx context.Context, offers []*Offer) error

	// GetOffer retrieves an offer by ID.
	GetOffer(ctx context.Context, offerID id.OfferID) (*Offer, error)

	// ListOffersByJob returns all offers for a job in attempt order.
	ListOffersByJob(ctx context.Context, jobID id.JobID) ([]*Offer, error)

	// ListPendingByCandidate returns a candidate's pending offers, oldest
	// deadline first.
	ListPendingByCandidate(ctx context.Context, candidateID id.CandidateID) ([]*Offer, error)

	// CountOffersByJob returns the number of offers created for a job.
	CountOffersByJob(ctx context.Context, jobID id.JobID) (int64, error)

	// TransitionOffer applies from → to as a conditional update and
	// returns the updated offer. It fails with handoff.ErrConflict when
	// the offer is no longer in the from status (a racing transition won),
	// handoff.ErrInvalidState when the transition table disallows the
	// move, and handoff.ErrOfferNotFound when the offer does not exist.
	TransitionOffer(ctx context.Context, offerID id.OfferID, from, to Status, resp Response) (*Offer, error)

	// CancelPending cancels every still-pending offer for the job in one
	// atomic conditional bulk update, excluding except (the winning offer;
	// pass id.Nil to cancel all). It returns the number of offers
	// cancelled. Offers that concurrently left pending are untouched.
	CancelPending(ctx context.Context, jobID id.JobID, except id.OfferID, at time.Time) (int64, error)

	// ListOverdue returns up to limit pending offers whose SLA deadline is
	// at or before now, oldest deadline first. The deadline sweeper feeds
	// these back into the engine.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*Offer, error)
}
