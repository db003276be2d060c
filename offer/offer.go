// Package offer defines the offer entity — one time-boxed proposal of a job
// to one candidate — and its persistence contract. The offer status is a
// closed state machine; every mutation goes through a conditional update so
// racing actors resolve to exactly one winner.
package offer

import (
	"time"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/id"
)

// Offer is the attempt record for one (job, candidate) pair. Score and
// DistanceKm are snapshots captured at dispatch time and never recomputed.
// Offers are created by the engine when a wave is dispatched, mutated only
// by accept/decline/timeout/cancel transitions, and never deleted.
type Offer struct {
	handoff.Entity

	ID          id.OfferID     `json:"id"`
	JobID       id.JobID       `json:"job_id"`
	CandidateID id.CandidateID `json:"candidate_id"`

	// Attempt is the 1-based, per-job dispatch sequence number. Attempt
	// numbers for a job are contiguous in dispatch order.
	Attempt int `json:"attempt"`

	Status Status `json:"status"`

	// DispatchedAt is when the offer was created; SLADeadline is
	// DispatchedAt plus the policy SLA, always strictly later.
	DispatchedAt time.Time `json:"dispatched_at"`
	SLADeadline  time.Time `json:"sla_deadline"`

	// RespondedAt is set by the terminal transition, nil while pending.
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	// DeclineReason and DeclineNotes are set by Decline.
	DeclineReason string `json:"decline_reason,omitempty"`
	DeclineNotes  string `json:"decline_notes,omitempty"`

	// Ranking snapshot at dispatch time.
	Score      float64 `json:"score"`
	DistanceKm float64 `json:"distance_km"`
}

// Overdue reports whether the offer is pending past its SLA deadline.
func (o *Offer) Overdue(now time.Time) bool {
	return o.Status == StatusPending && now.After(o.SLADeadline)
}
