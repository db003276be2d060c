package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/geo"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/job"
)

// CreateJob persists a new job projection.
func (s *Store) CreateJob(ctx context.Context, j *job.Job) error {
	var lat, lng *float64
	if j.Location != nil {
		lat, lng = &j.Location.Lat, &j.Location.Lng
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO handoff_jobs (id, category, lat, lng, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		j.ID.String(), j.Category, lat, lng, string(j.Status),
		j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return handoff.ErrConflict
		}
		return fmt.Errorf("handoff/postgres: create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, category, lat, lng, status, created_at, updated_at
		FROM handoff_jobs
		WHERE id = $1`,
		jobID.String(),
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, handoff.ErrJobNotFound
		}
		return nil, fmt.Errorf("handoff/postgres: get job: %w", err)
	}
	return j, nil
}

// SetJobStatus transitions a job from the expected status to the next one.
// Conditional: fails with handoff.ErrConflict if the job has moved on.
func (s *Store) SetJobStatus(ctx context.Context, jobID id.JobID, expected, next job.Status) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE handoff_jobs
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		jobID.String(), string(expected), string(next),
	)
	if err != nil {
		return fmt.Errorf("handoff/postgres: set job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if checkErr := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM handoff_jobs WHERE id = $1)`,
			jobID.String(),
		).Scan(&exists); checkErr != nil {
			return fmt.Errorf("handoff/postgres: set job status: %w", checkErr)
		}
		if !exists {
			return handoff.ErrJobNotFound
		}
		return handoff.ErrConflict
	}
	return nil
}

// ListJobsByStatus returns jobs in the given status, oldest first.
func (s *Store) ListJobsByStatus(ctx context.Context, status job.Status, opts job.ListOpts) ([]*job.Job, error) {
	query := `
		SELECT id, category, lat, lng, status, created_at, updated_at
		FROM handoff_jobs
		WHERE status = $1
		ORDER BY created_at ASC`
	args := []any{string(status)}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("handoff/postgres: list jobs by status: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// scanJob scans a single job row.
func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j         job.Job
		idStr     string
		statusStr string
		lat, lng  *float64
	)
	err := row.Scan(
		&idStr, &j.Category, &lat, &lng, &statusStr,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.Status = job.Status(statusStr)
	if lat != nil && lng != nil {
		j.Location = &geo.Point{Lat: *lat, Lng: *lng}
	}

	parsedID, parseErr := id.ParseJobID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("handoff/postgres: parse job id %q: %w", idStr, parseErr)
	}
	j.ID = parsedID

	return &j, nil
}

// collectJobs collects all jobs from query rows.
func collectJobs(rows pgx.Rows) ([]*job.Job, error) {
	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("handoff/postgres: scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("handoff/postgres: iterate job rows: %w", err)
	}
	return jobs, nil
}
