// Package candidate defines the read-only provider projection the dispatch
// engine matches and ranks. Candidates are owned by an external provider
// registry; Handoff never mutates them.
package candidate

import (
	"slices"

	"github.com/xraph/handoff/geo"
	"github.com/xraph/handoff/id"
)

// Candidate is a service provider considered for a job. All history fields
// are supplied by the registry; pointers distinguish "no history yet" from
// a genuine zero.
type Candidate struct {
	ID       id.CandidateID `json:"id"`
	Name     string         `json:"name,omitempty"`
	Active   bool           `json:"active"`
	Verified bool           `json:"verified"`

	// Categories is the set of service categories the candidate offers.
	Categories []string `json:"categories"`

	// ServiceCenter and RadiusKm describe the candidate's service area.
	ServiceCenter geo.Point `json:"service_center"`
	RadiusKm      float64   `json:"radius_km"`

	// Hours is the weekly operating-hours table. An empty table means the
	// candidate has not restricted their hours.
	Hours Hours `json:"hours,omitempty"`

	// AvgResponseMinutes is the historical mean time to respond to an
	// offer. Nil when the candidate has no response history.
	AvgResponseMinutes *float64 `json:"avg_response_minutes,omitempty"`

	// CompletionRate is the fraction of assigned jobs completed, in [0,1].
	// Nil when unset.
	CompletionRate *float64 `json:"completion_rate,omitempty"`

	// JobsCompleted is the candidate's total completed job count.
	JobsCompleted int `json:"jobs_completed"`
}

// OffersCategory reports whether the candidate offers the given service
// category.
func (c *Candidate) OffersCategory(category string) bool {
	return slices.Contains(c.Categories, category)
}
