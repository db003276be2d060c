package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/policy"
)

// PutPolicy inserts or replaces the policy for its category scope. The wave
// schedule is stored as a JSON array.
func (s *Store) PutPolicy(ctx context.Context, p *policy.Policy) error {
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("handoff/sqlite: marshal steps: %w", err)
	}

	now := formatTime(nowUTC())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO handoff_policies (category, sla_ns, steps, max_offers, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (category) DO UPDATE
		SET sla_ns = excluded.sla_ns,
		    steps = excluded.steps,
		    max_offers = excluded.max_offers,
		    updated_at = excluded.updated_at`,
		p.Category, p.SLA.Nanoseconds(), string(steps), p.MaxOffers, now, now,
	)
	if err != nil {
		return fmt.Errorf("handoff/sqlite: put policy: %w", err)
	}
	return nil
}

// GetPolicy retrieves the policy for a category scope.
func (s *Store) GetPolicy(ctx context.Context, category string) (*policy.Policy, error) {
	var (
		p       policy.Policy
		slaNs   int64
		steps   string
		created string
		updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT category, sla_ns, steps, max_offers, created_at, updated_at
		FROM handoff_policies
		WHERE category = ?`,
		category,
	).Scan(&p.Category, &slaNs, &steps, &p.MaxOffers, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, handoff.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("handoff/sqlite: get policy: %w", err)
	}

	p.SLA = time.Duration(slaNs)
	if err = json.Unmarshal([]byte(steps), &p.Steps); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: unmarshal steps: %w", err)
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse updated_at: %w", err)
	}

	return &p, nil
}
