package engine

import (
	"context"
	"fmt"

	"github.com/xraph/handoff/assignment"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/offer"
)

// OfferHistory returns every offer created for a job in attempt order,
// terminal and pending alike.
func (e *Engine) OfferHistory(ctx context.Context, jobID id.JobID) ([]*offer.Offer, error) {
	offers, err := e.store.ListOffersByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("offer history: %w", err)
	}
	return offers, nil
}

// PendingOffersForCandidate returns the candidate's open offers, oldest
// deadline first. Offers past their SLA deadline are filtered out even if
// the deadline delivery has not settled them yet: a candidate must never
// see an offer it can no longer accept.
func (e *Engine) PendingOffersForCandidate(ctx context.Context, candidateID id.CandidateID) ([]*offer.Offer, error) {
	pending, err := e.store.ListPendingByCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("pending offers: %w", err)
	}

	now := e.now()
	open := pending[:0]
	for _, o := range pending {
		if now.After(o.SLADeadline) {
			continue
		}
		open = append(open, o)
	}
	return open, nil
}

// Assignment returns the assignment for a job, or
// handoff.ErrAssignmentNotFound if the job has not been won.
func (e *Engine) Assignment(ctx context.Context, jobID id.JobID) (*assignment.Assignment, error) {
	a, err := e.store.GetAssignmentByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("assignment: %w", err)
	}
	return a, nil
}
