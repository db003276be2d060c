package job

import (
	"github.com/xraph/handoff"
	"github.com/xraph/handoff/geo"
	"github.com/xraph/handoff/id"
)

// Status represents the dispatch-relevant lifecycle state of a job.
// Terminal states (completed, expired, …) belong to the surrounding job
// lifecycle subsystem; the dispatch engine only reads and writes these three.
type Status string

const (
	// StatusUnassigned means no dispatch cycle has started for the job.
	StatusUnassigned Status = "unassigned"
	// StatusDispatching means offers are in flight for the job.
	StatusDispatching Status = "dispatching"
	// StatusAssigned means a candidate accepted and the job is won.
	StatusAssigned Status = "assigned"
)

// Job is the dispatch engine's projection of a service job. The engine
// reads Category and Location and writes Dispatching/Assigned transitions;
// everything else about a job lives outside this module.
type Job struct {
	handoff.Entity

	ID       id.JobID   `json:"id"`
	Category string     `json:"category"`
	Location *geo.Point `json:"location,omitempty"`
	Status   Status     `json:"status"`
}
