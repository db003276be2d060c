package candidate

import (
	"context"
	"sort"
	"sync"
)

// Registry is the read-only lookup interface to the external provider
// registry. FindEligible returns every candidate advertising the category;
// the matcher applies the remaining eligibility filters (active, verified,
// radius, hours).
type Registry interface {
	FindEligible(ctx context.Context, category string) ([]*Candidate, error)
}

// Static is an in-memory Registry for tests and development.
// Safe for concurrent use.
type Static struct {
	mu         sync.RWMutex
	candidates map[string]*Candidate
}

// NewStatic returns a Static registry seeded with the given candidates.
func NewStatic(candidates ...*Candidate) *Static {
	s := &Static{candidates: make(map[string]*Candidate, len(candidates))}
	for _, c := range candidates {
		s.candidates[c.ID.String()] = c
	}
	return s
}

// Add inserts or replaces a candidate.
func (s *Static) Add(c *Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[c.ID.String()] = c
}

// FindEligible returns candidates advertising the category, ordered by ID
// for determinism.
func (s *Static) FindEligible(_ context.Context, category string) ([]*Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		if c.OffersCategory(category) {
			cp := *c
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].ID.String() < result[k].ID.String()
	})

	return result, nil
}
