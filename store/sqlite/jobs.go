package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/geo"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/job"
)

// CreateJob persists a new job projection.
func (s *Store) CreateJob(ctx context.Context, j *job.Job) error {
	var lat, lng sql.NullFloat64
	if j.Location != nil {
		lat = sql.NullFloat64{Float64: j.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: j.Location.Lng, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO handoff_jobs (id, category, lat, lng, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID.String(), j.Category, lat, lng, string(j.Status),
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return handoff.ErrConflict
		}
		return fmt.Errorf("handoff/sqlite: create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, category, lat, lng, status, created_at, updated_at
		FROM handoff_jobs
		WHERE id = ?`,
		jobID.String(),
	)

	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, handoff.ErrJobNotFound
		}
		return nil, fmt.Errorf("handoff/sqlite: get job: %w", err)
	}
	return j, nil
}

// SetJobStatus transitions a job from the expected status to the next one.
func (s *Store) SetJobStatus(ctx context.Context, jobID id.JobID, expected, next job.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE handoff_jobs
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(next), formatTime(nowUTC()), jobID.String(), string(expected),
	)
	if err != nil {
		return fmt.Errorf("handoff/sqlite: set job status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("handoff/sqlite: set job status: %w", err)
	}
	if affected == 0 {
		var exists bool
		if checkErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM handoff_jobs WHERE id = ?)`,
			jobID.String(),
		).Scan(&exists); checkErr != nil {
			return fmt.Errorf("handoff/sqlite: set job status: %w", checkErr)
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
		WHERE status = ?
		ORDER BY created_at ASC`
	args := []any{string(status)}

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("handoff/sqlite: list jobs by status: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var jobs []*job.Job
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("handoff/sqlite: scan job row: %w", scanErr)
		}
		jobs = append(jobs, j)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: iterate job rows: %w", err)
	}
	return jobs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanJob scans a single job row.
func scanJob(row scanner) (*job.Job, error) {
	var (
		j         job.Job
		idStr     string
		statusStr string
		lat, lng  sql.NullFloat64
		created   string
		updated   string
	)
	err := row.Scan(&idStr, &j.Category, &lat, &lng, &statusStr, &created, &updated)
	if err != nil {
		return nil, err
	}

	j.Status = job.Status(statusStr)
	if lat.Valid && lng.Valid {
		j.Location = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}

	if j.ID, err = id.ParseJobID(idStr); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse job id %q: %w", idStr, err)
	}
	if j.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse created_at: %w", err)
	}
	if j.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse updated_at: %w", err)
	}

	return &j, nil
}

// isUniqueViolation checks for a SQLite unique-constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
