// Package backoff provides retry delay strategies for the deadline sweeper
// and for callers retrying escalation after transient failures. Strategies
// are stateless and safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before retry attempt n (1-indexed: attempt 1
// is the first retry after the initial failure).
type Strategy interface {
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each attempt.
// Delay = min(Initial * 2^(attempt-1), Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(attempt-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// FullJitter
// ──────────────────────────────────────────────────

// FullJitter draws a random delay in [0, min(Initial * 2^(attempt-1), Max)].
// This prevents a thundering herd when many sweepers back off together.
type FullJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewFullJitter creates an exponential backoff with full jitter.
func NewFullJitter(initial, maxDelay time.Duration) *FullJitter {
	return &FullJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration in [0, min(Initial * 2^(attempt-1), Max)].
func (f *FullJitter) Delay(attempt int) time.Duration {
	base := float64(f.Initial) * math.Pow(2, float64(attempt-1))
	if f.Max > 0 && base > float64(f.Max) {
		base = float64(f.Max)
	}
	return time.Duration(rand.Float64() * base) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the backoff the deadline sweeper uses after
// consecutive store failures: full jitter, 1s initial, 30s max.
func DefaultStrategy() Strategy {
	return NewFullJitter(1*time.Second, 30*time.Second)
}
