package handoff

import "time"

// Config holds the dispatch defaults used when the policy store has no
// entry for a job's service category (or is unavailable).
type Config struct {
	// SLA is how long a candidate has to respond to an offer.
	SLA time.Duration

	// Steps is the escalation wave-size schedule. Step 0 offers Steps[0]
	// candidates, step 1 the next Steps[1], and so on. Past the end of the
	// list the last entry repeats.
	Steps []int

	// MaxOffers is the ceiling on total offers created for one job.
	MaxOffers int

	// SweepInterval is how often the deadline sweeper scans for overdue
	// pending offers and stalled dispatching jobs.
	SweepInterval time.Duration

	// SweepBatch is the maximum number of overdue offers claimed per sweep.
	SweepBatch int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SLA:           5 * time.Minute,
		Steps:         []int{1, 2, 5},
		MaxOffers:     8,
		SweepInterval: 15 * time.Second,
		SweepBatch:    100,
	}
}
