package job

import (
	"context"

	"github.com/xraph/handoff/id"
)

// ListOpts controls pagination for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// Store defines the persistence contract for the dispatch engine's view
// of jobs.
type Store interface {
	// CreateJob persists a new job projection.
	CreateJob(ctx context.Context, j *Job) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// SetJobStatus transitions a job from the expected status to the new
	// one. The update is conditional: if the job is no longer in the
	// expected status the store returns handoff.ErrConflict and leaves the
	// row untouched.
	SetJobStatus(ctx context.Context, jobID id.JobID, expected, next Status) error

	// ListJobsByStatus returns jobs in the given status, oldest first.
	// The deadline sweeper uses this to find dispatching jobs that need
	// their escalation re-evaluated.
	ListJobsByStatus(ctx context.Context, status Status, opts ListOpts) ([]*Job, error)
}
