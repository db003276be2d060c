package postgres

import (
	"context"
	"fmt"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/assignment"
	"github.com/xraph/handoff/id"
)

// CreateAssignment persists a new assignment. The unique index on job_id is
// what serializes concurrent accepts for the same job.
func (s *Store) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO handoff_assignments (
			id, job_id, candidate_id, assigned_at, manual_override, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID.String(), a.JobID.String(), a.CandidateID.String(),
		a.AssignedAt, a.ManualOverride,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return handoff.ErrJobAssigned
		}
		return fmt.Errorf("handoff/postgres: create assignment: %w", err)
	}
	return nil
}

// GetAssignmentByJob retrieves the assignment for a job.
func (s *Store) GetAssignmentByJob(ctx context.Context, jobID id.JobID) (*assignment.Assignment, error) {
	var (
		a            assignment.Assignment
		idStr        string
		jobStr       string
		candidateStr string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, job_id, candidate_id, assigned_at, manual_override, created_at, updated_at
		FROM handoff_assignments
		WHERE job_id = $1`,
		jobID.String(),
	).Scan(
		&idStr, &jobStr, &candidateStr,
		&a.AssignedAt, &a.ManualOverride,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, handoff.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("handoff/postgres: get assignment: %w", err)
	}

	if a.ID, err = id.ParseAssignmentID(idStr); err != nil {
		return nil, fmt.Errorf("handoff/postgres: parse assignment id %q: %w", idStr, err)
	}
	if a.JobID, err = id.ParseJobID(jobStr); err != nil {
		return nil, fmt.Errorf("handoff/postgres: parse job id %q: %w", jobStr, err)
	}
	if a.CandidateID, err = id.ParseCandidateID(candidateStr); err != nil {
		return nil, fmt.Errorf("handoff/postgres: parse candidate id %q: %w", candidateStr, err)
	}

	return &a, nil
}
