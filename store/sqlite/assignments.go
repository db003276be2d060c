package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/assignment"
	"github.com/xraph/handoff/id"
)

// CreateAssignment persists a new assignment. The unique constraint on
// job_id is what serializes concurrent accepts.
func (s *Store) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO handoff_assignments (
			id, job_id, candidate_id, assigned_at, manual_override, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.JobID.String(), a.CandidateID.String(),
		formatTime(a.AssignedAt), a.ManualOverride,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return handoff.ErrJobAssigned
		}
		return fmt.Errorf("handoff/sqlite: create assignment: %w", err)
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
		assigned     string
		created      string
		updated      string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, job_id, candidate_id, assigned_at, manual_override, created_at, updated_at
		FROM handoff_assignments
		WHERE job_id = ?`,
		jobID.String(),
	).Scan(&idStr, &jobStr, &candidateStr, &assigned, &a.ManualOverride, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, handoff.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("handoff/sqlite: get assignment: %w", err)
	}

	if a.ID, err = id.ParseAssignmentID(idStr); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse assignment id %q: %w", idStr, err)
	}
	if a.JobID, err = id.ParseJobID(jobStr); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse job id %q: %w", jobStr, err)
	}
	if a.CandidateID, err = id.ParseCandidateID(candidateStr); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse candidate id %q: %w", candidateStr, err)
	}
	if a.AssignedAt, err = parseTime(assigned); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse assigned_at: %w", err)
	}
	if a.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse updated_at: %w", err)
	}

	return &a, nil
}
