// Package policy defines the escalation policy — SLA, wave-size schedule,
// and offer ceiling — and its resolution against a store with hard-coded
// fallbacks.
package policy

import (
	"fmt"
	"time"

	"github.com/xraph/handoff"
)

// Policy controls how a job's dispatch escalates. A policy is scoped to a
// service category; the empty category is the default scope.
type Policy struct {
	handoff.Entity

	Category string `json:"category,omitempty"`

	// SLA is how long a candidate has to respond to an offer.
	SLA time.Duration `json:"sla"`

	// Steps is the ordered wave-size schedule. Step s offers Steps[s] new
	// candidates; past the end of the list the last entry repeats.
	Steps []int `json:"steps"`

	// MaxOffers caps the total number of offers created for one job.
	MaxOffers int `json:"max_offers"`
}

// Default returns the hard-coded policy used when the store is unavailable
// or has no entry for a category.
func Default() Policy {
	cfg := handoff.DefaultConfig()
	return Policy{
		SLA:       cfg.SLA,
		Steps:     cfg.Steps,
		MaxOffers: cfg.MaxOffers,
	}
}

// Validate checks the policy's internal consistency.
func (p Policy) Validate() error {
	if p.SLA <= 0 {
		return fmt.Errorf("policy: sla must be positive, got %v", p.SLA)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("policy: steps must not be empty")
	}
	for i, size := range p.Steps {
		if size <= 0 {
			return fmt.Errorf("policy: step %d size must be positive, got %d", i, size)
		}
	}
	if p.MaxOffers <= 0 {
		return fmt.Errorf("policy: max offers must be positive, got %d", p.MaxOffers)
	}
	return nil
}

// WaveSize returns the wave size for the given step. Steps past the end of
// the schedule reuse the last entry.
func (p Policy) WaveSize(step int) int {
	if len(p.Steps) == 0 {
		return 0
	}
	if step >= len(p.Steps) {
		return p.Steps[len(p.Steps)-1]
	}
	return p.Steps[step]
}

// MaxStep returns the index of the last distinct step in the schedule.
func (p Policy) MaxStep() int {
	if len(p.Steps) == 0 {
		return 0
	}
	return len(p.Steps) - 1
}
