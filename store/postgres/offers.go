package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/offer"
)

const offerColumns = `
	id, job_id, candidate_id, attempt, status,
	dispatched_at, sla_deadline, responded_at,
	decline_reason, decline_notes, score, distance_km,
	created_at, updated_at`

// CreateOffers persists a batch of new offers atomically. The unique index
// on (job_id, candidate_id) rejects the whole batch when any candidate
// already holds an offer for the job.
func (s *Store) CreateOffers(ctx context.Context, offers []*offer.Offer) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("handoff/postgres: create offers begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	for _, o := range offers {
		_, err = tx.Exec(ctx, `
			INSERT INTO handoff_offers (
				id, job_id, candidate_id, attempt, status,
				dispatched_at, sla_deadline, responded_at,
				decline_reason, decline_notes, score, distance_km,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			o.ID.String(), o.JobID.String(), o.CandidateID.String(),
			o.Attempt, string(o.Status),
			o.DispatchedAt, o.SLADeadline, o.RespondedAt,
			o.DeclineReason, o.DeclineNotes, o.Score, o.DistanceKm,
			o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			if isDuplicateKey(err) {
				return handoff.ErrDuplicateOffer
			}
			return fmt.Errorf("handoff/postgres: create offer: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("handoff/postgres: create offers commit: %w", err)
	}
	return nil
}

// GetOffer retrieves an offer by ID.
func (s *Store) GetOffer(ctx context.Context, offerID id.OfferID) (*offer.Offer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM handoff_offers WHERE id = $1`,
		offerID.String(),
	)

	o, err := scanOffer(row)
	if err != nil {
		if isNoRows(err) {
			return nil, handoff.ErrOfferNotFound
		}
		return nil, fmt.Errorf("handoff/postgres: get offer: %w", err)
	}
	return o, nil
}

// ListOffersByJob returns all offers for a job in attempt order.
func (s *Store) ListOffersByJob(ctx context.Context, jobID id.JobID) ([]*offer.Offer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+offerColumns+` FROM handoff_offers WHERE job_id = $1 ORDER BY attempt ASC`,
		jobID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("handoff/postgres: list offers by job: %w", err)
	}
	defer rows.Close()

	return collectOffers(rows)
}

// ListPendingByCandidate returns a candidate's pending offers, oldest
// deadline first.
func (s *Store) ListPendingByCandidate(ctx context.Context, candidateID id.CandidateID) ([]*offer.Offer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+offerColumns+` FROM handoff_offers
		WHERE candidate_id = $1 AND status = 'pending'
		ORDER BY sla_deadline ASC`,
		candidateID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("handoff/postgres: list pending by candidate: %w", err)
	}
	defer rows.Close()

	return collectOffers(rows)
}

// CountOffersByJob returns the number of offers created for a job.
func (s *Store) CountOffersByJob(ctx context.Context, jobID id.JobID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM handoff_offers WHERE job_id = $1`,
		jobID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("handoff/postgres: count offers by job: %w", err)
	}
	return count, nil
}

// TransitionOffer applies from → to as a conditional update.
func (s *Store) TransitionOffer(ctx context.Context, offerID id.OfferID, from, to offer.Status, resp offer.Response) (*offer.Offer, error) {
	if !offer.CanTransition(from, to) {
		return nil, handoff.ErrInvalidState
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE handoff_offers
		SET status = $3, responded_at = $4, decline_reason = $5, decline_notes = $6, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+offerColumns,
		offerID.String(), string(from), string(to),
		resp.At, resp.DeclineReason, resp.DeclineNotes,
	)

	o, err := scanOffer(row)
	if err != nil {
		if isNoRows(err) {
			var exists bool
			if checkErr := s.pool.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM handoff_offers WHERE id = $1)`,
				offerID.String(),
			).Scan(&exists); checkErr != nil {
				return nil, fmt.Errorf("handoff/postgres: transition offer: %w", checkErr)
			}
			if !exists {
				return nil, handoff.ErrOfferNotFound
			}
			return nil, handoff.ErrConflict
		}
		return nil, fmt.Errorf("handoff/postgres: transition offer: %w", err)
	}
	return o, nil
}

// CancelPending cancels every still-pending offer for the job, excluding
// except, in one conditional bulk update.
func (s *Store) CancelPending(ctx context.Context, jobID id.JobID, except id.OfferID, at time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE handoff_offers
		SET status = 'cancelled', responded_at = $3, updated_at = NOW()
		WHERE job_id = $1 AND status = 'pending' AND id <> $2`,
		jobID.String(), except.String(), at,
	)
	if err != nil {
		return 0, fmt.Errorf("handoff/postgres: cancel pending: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListOverdue returns up to limit pending offers past their SLA deadline,
// oldest deadline first.
func (s *Store) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*offer.Offer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+offerColumns+` FROM handoff_offers
		WHERE status = 'pending' AND sla_deadline <= $1
		ORDER BY sla_deadline ASC
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("handoff/postgres: list overdue: %w", err)
	}
	defer rows.Close()

	return collectOffers(rows)
}

// scanOffer scans a single offer row.
func scanOffer(row pgx.Row) (*offer.Offer, error) {
	var (
		o            offer.Offer
		idStr        string
		jobStr       string
		candidateStr string
		statusStr    string
	)
	err := row.Scan(
		&idStr, &jobStr, &candidateStr, &o.Attempt, &statusStr,
		&o.DispatchedAt, &o.SLADeadline, &o.RespondedAt,
		&o.DeclineReason, &o.DeclineNotes, &o.Score, &o.DistanceKm,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = offer.Status(statusStr)

	if o.ID, err = id.ParseOfferID(idStr); err != nil {
		return nil, fmt.Errorf("handoff/postgres: parse offer id %q: %w", idStr, err)
	}
	if o.JobID, err = id.ParseJobID(jobStr); err != nil {
		return nil, fmt.Errorf("handoff/postgres: parse job id %q: %w", jobStr, err)
	}
	if o.CandidateID, err = id.ParseCandidateID(candidateStr); err != nil {
		return nil, fmt.Errorf("handoff/postgres: parse candidate id %q: %w", candidateStr, err)
	}

	return &o, nil
}

// collectOffers collects all offers from query rows.
func collectOffers(rows pgx.Rows) ([]*offer.Offer, error) {
	var offers []*offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("handoff/postgres: scan offer row: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("handoff/postgres: iterate offer rows: %w", err)
	}
	return offers, nil
}
