package policy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xraph/handoff"
)

// Store defines the persistence contract for escalation policies.
type Store interface {
	// PutPolicy inserts or replaces the policy for its category scope.
	PutPolicy(ctx context.Context, p *Policy) error

	// GetPolicy retrieves the policy for a category. It returns
	// handoff.ErrPolicyNotFound when no entry exists for that scope.
	GetPolicy(ctx context.Context, category string) (*Policy, error)
}

// Resolver looks up the policy for a category, falling back first to the
// default scope (empty category) and then to the hard-coded defaults when
// the store errors or has no entry. Store failures degrade dispatch policy,
// never dispatch itself.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil store resolves everything to the
// hard-coded defaults.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the effective policy for a service category.
func (r *Resolver) Resolve(ctx context.Context, category string) Policy {
	if r.store == nil {
		return Default()
	}

	p, err := r.lookup(ctx, category)
	if err != nil {
		r.logger.Warn("policy store unavailable, using defaults",
			slog.String("category", category),
			slog.String("error", err.Error()),
		)
		return Default()
	}
	if p == nil {
		return Default()
	}

	if validateErr := p.Validate(); validateErr != nil {
		r.logger.Warn("stored policy invalid, using defaults",
			slog.String("category", category),
			slog.String("error", validateErr.Error()),
		)
		return Default()
	}

	return *p
}

// lookup tries the category scope, then the default scope. A nil policy
// with nil error means neither scope has an entry.
func (r *Resolver) lookup(ctx context.Context, category string) (*Policy, error) {
	p, err := r.store.GetPolicy(ctx, category)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, handoff.ErrPolicyNotFound) {
		return nil, err
	}

	if category == "" {
		return nil, nil
	}

	p, err = r.store.GetPolicy(ctx, "")
	if err == nil {
		return p, nil
	}
	if errors.Is(err, handoff.ErrPolicyNotFound) {
		return nil, nil
	}
	return nil, err
}
