package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/policy"
)

// PutPolicy inserts or replaces the policy for its category scope.
func (s *Store) PutPolicy(ctx context.Context, p *policy.Policy) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO handoff_policies (category, sla_ns, steps, max_offers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (category) DO UPDATE
		SET sla_ns = EXCLUDED.sla_ns,
		    steps = EXCLUDED.steps,
		    max_offers = EXCLUDED.max_offers,
		    updated_at = NOW()`,
		p.Category, p.SLA.Nanoseconds(), stepsToInt32(p.Steps), p.MaxOffers,
	)
	if err != nil {
		return fmt.Errorf("handoff/postgres: put policy: %w", err)
	}
	return nil
}

// GetPolicy retrieves the policy for a category scope.
func (s *Store) GetPolicy(ctx context.Context, category string) (*policy.Policy, error) {
	var (
		p     policy.Policy
		slaNs int64
		steps []int32
	)
	err := s.pool.QueryRow(ctx, `
		SELECT category, sla_ns, steps, max_offers, created_at, updated_at
		FROM handoff_policies
		WHERE category = $1`,
		category,
	).Scan(&p.Category, &slaNs, &steps, &p.MaxOffers, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, handoff.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("handoff/postgres: get policy: %w", err)
	}

	p.SLA = time.Duration(slaNs)
	p.Steps = stepsFromInt32(steps)
	return &p, nil
}
