package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/assignment"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/job"
	"github.com/xraph/handoff/offer"
	"github.com/xraph/handoff/policy"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ job.Store        = (*Store)(nil)
	_ offer.Store      = (*Store)(nil)
	_ assignment.Store = (*Store)(nil)
	_ policy.Store     = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access; conditional-update semantics match the SQL
// backends exactly. Intended for unit testing and development.
type Store struct {
	mu sync.Mutex

	jobs        map[string]*job.Job
	offers      map[string]*offer.Offer
	assignments map[string]*assignment.Assignment // key: job ID
	policies    map[string]*policy.Policy         // key: category ("" = default scope)
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:        make(map[string]*job.Job),
		offers:      make(map[string]*offer.Offer),
		assignments: make(map[string]*assignment.Assignment),
		policies:    make(map[string]*policy.Policy),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// CreateJob persists a new job projection.
func (m *Store) CreateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, exists := m.jobs[key]; exists {
		return handoff.ErrConflict
	}
	cp := *j
	m.jobs[key] = &cp
	return nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, handoff.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// SetJobStatus transitions a job from the expected status to the next one.
// Conditional: fails with handoff.ErrConflict if the job has moved on.
func (m *Store) SetJobStatus(_ context.Context, jobID id.JobID, expected, next job.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return handoff.ErrJobNotFound
	}
	if j.Status != expected {
		return handoff.ErrConflict
	}
	j.Status = next
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// ListJobsByStatus returns jobs in the given status, oldest first.
func (m *Store) ListJobsByStatus(_ context.Context, status job.Status, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.Status != status {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// ──────────────────────────────────────────────────
// Offer Store
// ──────────────────────────────────────────────────

// offerPairKey builds the uniqueness key for one (job, candidate) pair.
func offerPairKey(jobID id.JobID, candidateID id.CandidateID) string {
	return jobID.String() + ":" + candidateID.String()
}

// CreateOffers persists a batch of new offers atomically.
func (m *Store) CreateOffers(_ context.Context, offers []*offer.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the whole batch before touching anything.
	pairs := make(map[string]struct{}, len(offers))
	for _, o := range offers {
		pair := offerPairKey(o.JobID, o.CandidateID)
		if _, dup := pairs[pair]; dup {
			return handoff.ErrDuplicateOffer
		}
		pairs[pair] = struct{}{}
	}
	for _, existing := range m.offers {
		if _, clash := pairs[offerPairKey(existing.JobID, existing.CandidateID)]; clash {
			return handoff.ErrDuplicateOffer
		}
	}

	for _, o := range offers {
		cp := *o
		m.offers[o.ID.String()] = &cp
	}
	return nil
}

// GetOffer retrieves an offer by ID.
func (m *Store) GetOffer(_ context.Context, offerID id.OfferID) (*offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.offers[offerID.String()]
	if !ok {
		return nil, handoff.ErrOfferNotFound
	}
	cp := *o
	return &cp, nil
}

// ListOffersByJob returns all offers for a job in attempt order.
func (m *Store) ListOffersByJob(_ context.Context, jobID id.JobID) ([]*offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*offer.Offer
	for _, o := range m.offers {
		if o.JobID.String() != jobID.String() {
			continue
		}
		cp := *o
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].Attempt < result[k].Attempt
	})

	return result, nil
}

// ListPendingByCandidate returns a candidate's pending offers, oldest
// deadline first.
func (m *Store) ListPendingByCandidate(_ context.Context, candidateID id.CandidateID) ([]*offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*offer.Offer
	for _, o := range m.offers {
		if o.Status != offer.StatusPending {
			continue
		}
		if o.CandidateID.String() != candidateID.String() {
			continue
		}
		cp := *o
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].SLADeadline.Before(result[k].SLADeadline)
	})

	return result, nil
}

// CountOffersByJob returns the number of offers created for a job.
func (m *Store) CountOffersByJob(_ context.Context, jobID id.JobID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, o := range m.offers {
		if o.JobID.String() == jobID.String() {
			count++
		}
	}
	return count, nil
}

// TransitionOffer applies from → to as a conditional update.
func (m *Store) TransitionOffer(_ context.Context, offerID id.OfferID, from, to offer.Status, resp offer.Response) (*offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.offers[offerID.String()]
	if !ok {
		return nil, handoff.ErrOfferNotFound
	}
	if !offer.CanTransition(from, to) {
		return nil, handoff.ErrInvalidState
	}
	if o.Status != from {
		return nil, handoff.ErrConflict
	}

	o.Status = to
	respondedAt := resp.At
	o.RespondedAt = &respondedAt
	o.DeclineReason = resp.DeclineReason
	o.DeclineNotes = resp.DeclineNotes
	o.UpdatedAt = time.Now().UTC()

	cp := *o
	return &cp, nil
}

// CancelPending cancels every still-pending offer for the job, excluding
// except, in one atomic pass.
func (m *Store) CancelPending(_ context.Context, jobID id.JobID, except id.OfferID, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, o := range m.offers {
		if o.JobID.String() != jobID.String() {
			continue
		}
		if o.Status != offer.StatusPending {
			continue
		}
		if !except.IsNil() && o.ID.String() == except.String() {
			continue
		}
		o.Status = offer.StatusCancelled
		respondedAt := at
		o.RespondedAt = &respondedAt
		o.UpdatedAt = time.Now().UTC()
		count++
	}
	return count, nil
}

// ListOverdue returns up to limit pending offers past their SLA deadline,
// oldest deadline first.
func (m *Store) ListOverdue(_ context.Context, now time.Time, limit int) ([]*offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*offer.Offer
	for _, o := range m.offers {
		if o.Status != offer.StatusPending {
			continue
		}
		if o.SLADeadline.After(now) {
			continue
		}
		cp := *o
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].SLADeadline.Before(result[k].SLADeadline)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

// CreateAssignment persists a new assignment. The per-job uniqueness check
// here is what serializes concurrent accepts.
func (m *Store) CreateAssignment(_ context.Context, a *assignment.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := a.JobID.String()
	if _, exists := m.assignments[key]; exists {
		return handoff.ErrJobAssigned
	}
	cp := *a
	m.assignments[key] = &cp
	return nil
}

// GetAssignmentByJob retrieves the assignment for a job.
func (m *Store) GetAssignmentByJob(_ context.Context, jobID id.JobID) (*assignment.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assignments[jobID.String()]
	if !ok {
		return nil, handoff.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

// ──────────────────────────────────────────────────
// Policy Store
// ──────────────────────────────────────────────────

// PutPolicy inserts or replaces the policy for its category scope.
func (m *Store) PutPolicy(_ context.Context, p *policy.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	cp.UpdatedAt = time.Now().UTC()
	m.policies[p.Category] = &cp
	return nil
}

// GetPolicy retrieves the policy for a category scope.
func (m *Store) GetPolicy(_ context.Context, category string) (*policy.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.policies[category]
	if !ok {
		return nil, handoff.ErrPolicyNotFound
	}
	cp := *p
	return &cp, nil
}
