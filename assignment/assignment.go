// Package assignment defines the durable record that a job has been won by
// a candidate. At most one assignment ever exists per job; the store's
// uniqueness guarantee is the final arbiter of racing accepts.
package assignment

import (
	"context"
	"time"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/id"
)

// Assignment links a job to the candidate that won it.
type Assignment struct {
	handoff.Entity

	ID          id.AssignmentID `json:"id"`
	JobID       id.JobID        `json:"job_id"`
	CandidateID id.CandidateID  `json:"candidate_id"`
	AssignedAt  time.Time       `json:"assigned_at"`

	// ManualOverride marks assignments forced by an operator rather than
	// won through an accepted offer.
	ManualOverride bool `json:"manual_override"`
}

// Store defines the persistence contract for assignments.
type Store interface {
	// CreateAssignment persists a new assignment. It fails with
	// handoff.ErrJobAssigned if the job already has one — this uniqueness
	// check is what serializes concurrent accepts for the same job.
	CreateAssignment(ctx context.Context, a *Assignment) error

	// GetAssignmentByJob retrieves the assignment for a job, or
	// handoff.ErrAssignmentNotFound.
	GetAssignmentByJob(ctx context.Context, jobID id.JobID) (*Assignment, error)
}
