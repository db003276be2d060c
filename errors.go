package handoff

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("handoff: no store configured")
	ErrStoreClosed = errors.New("handoff: store closed")

	// Not found errors.
	ErrJobNotFound        = errors.New("handoff: job not found")
	ErrOfferNotFound      = errors.New("handoff: offer not found")
	ErrCandidateNotFound  = errors.New("handoff: candidate not found")
	ErrAssignmentNotFound = errors.New("handoff: assignment not found")
	ErrPolicyNotFound     = errors.New("handoff: policy not found")

	// Conflict errors. A racing accept/decline/timeout lost, the SLA
	// deadline passed, or the job already has an assignment.
	ErrConflict       = errors.New("handoff: conflict")
	ErrSLAExpired     = errors.New("handoff: sla deadline expired")
	ErrJobAssigned    = errors.New("handoff: job already assigned")
	ErrDuplicateOffer = errors.New("handoff: offer already exists for candidate")

	// State errors.
	ErrInvalidState = errors.New("handoff: invalid state transition")

	// Exhausted errors. No eligible candidates remain, or the maximum
	// offer count for the job has been reached.
	ErrExhausted = errors.New("handoff: dispatch capacity exhausted")
)

// IsConflict reports whether err belongs to the conflict family: a lost
// race, an expired SLA deadline, or an already-assigned job.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSLAExpired) ||
		errors.Is(err, ErrJobAssigned) ||
		errors.Is(err, ErrDuplicateOffer)
}
