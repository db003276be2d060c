package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/offer"
)

const offerColumns = `
	id, job_id, candidate_id, attempt, status,
	dispatched_at, sla_deadline, responded_at,
	decline_reason, decline_notes, score, distance_km,
	created_at, updated_at`

// CreateOffers persists a batch of new offers atomically.
func (s *Store) CreateOffers(ctx context.Context, offers []*offer.Offer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("handoff/sqlite: create offers begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, o := range offers {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO handoff_offers (
				id, job_id, candidate_id, attempt, status,
				dispatched_at, sla_deadline, responded_at,
				decline_reason, decline_notes, score, distance_km,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID.String(), o.JobID.String(), o.CandidateID.String(),
			o.Attempt, string(o.Status),
			formatTime(o.DispatchedAt), formatTime(o.SLADeadline), nullTime(o.RespondedAt),
			o.DeclineReason, o.DeclineNotes, o.Score, o.DistanceKm,
			formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return handoff.ErrDuplicateOffer
			}
			return fmt.Errorf("handoff/sqlite: create offer: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("handoff/sqlite: create offers commit: %w", err)
	}
	return nil
}

// GetOffer retrieves an offer by ID.
func (s *Store) GetOffer(ctx context.Context, offerID id.OfferID) (*offer.Offer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM handoff_offers WHERE id = ?`,
		offerID.String(),
	)

	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, handoff.ErrOfferNotFound
		}
		return nil, fmt.Errorf("handoff/sqlite: get offer: %w", err)
	}
	return o, nil
}

// ListOffersByJob returns all offers for a job in attempt order.
func (s *Store) ListOffersByJob(ctx context.Context, jobID id.JobID) ([]*offer.Offer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM handoff_offers WHERE job_id = ? ORDER BY attempt ASC`,
		jobID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("handoff/sqlite: list offers by job: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	return collectOffers(rows)
}

// ListPendingByCandidate returns a candidate's pending offers, oldest
// deadline first.
func (s *Store) ListPendingByCandidate(ctx context.Context, candidateID id.CandidateID) ([]*offer.Offer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM handoff_offers
		WHERE candidate_id = ? AND status = 'pending'
		ORDER BY sla_deadline ASC`,
		candidateID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("handoff/sqlite: list pending by candidate: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	return collectOffers(rows)
}

// CountOffersByJob returns the number of offers created for a job.
func (s *Store) CountOffersByJob(ctx context.Context, jobID id.JobID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM handoff_offers WHERE job_id = ?`,
		jobID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("handoff/sqlite: count offers by job: %w", err)
	}
	return count, nil
}

// TransitionOffer applies from → to as a conditional update.
func (s *Store) TransitionOffer(ctx context.Context, offerID id.OfferID, from, to offer.Status, resp offer.Response) (*offer.Offer, error) {
	if !offer.CanTransition(from, to) {
		return nil, handoff.ErrInvalidState
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE handoff_offers
		SET status = ?, responded_at = ?, decline_reason = ?, decline_notes = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), formatTime(resp.At), resp.DeclineReason, resp.DeclineNotes,
		formatTime(nowUTC()), offerID.String(), string(from),
	)
	if err != nil {
		return nil, fmt.Errorf("handoff/sqlite: transition offer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("handoff/sqlite: transition offer: %w", err)
	}
	if affected == 0 {
		var exists bool
		if checkErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM handoff_offers WHERE id = ?)`,
			offerID.String(),
		).Scan(&exists); checkErr != nil {
			return nil, fmt.Errorf("handoff/sqlite: transition offer: %w", checkErr)
		}
		if !exists {
			return nil, handoff.ErrOfferNotFound
		}
		return nil, handoff.ErrConflict
	}

	return s.GetOffer(ctx, offerID)
}

// CancelPending cancels every still-pending offer for the job, excluding
// except, in one conditional bulk update.
func (s *Store) CancelPending(ctx context.Context, jobID id.JobID, except id.OfferID, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE handoff_offers
		SET status = 'cancelled', responded_at = ?, updated_at = ?
		WHERE job_id = ? AND status = 'pending' AND id <> ?`,
		formatTime(at), formatTime(nowUTC()), jobID.String(), except.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("handoff/sqlite: cancel pending: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("handoff/sqlite: cancel pending: %w", err)
	}
	return affected, nil
}

// ListOverdue returns up to limit pending offers past their SLA deadline,
// oldest deadline first.
func (s *Store) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*offer.Offer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM handoff_offers
		WHERE status = 'pending' AND sla_deadline <= ?
		ORDER BY sla_deadline ASC
		LIMIT ?`,
		formatTime(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("handoff/sqlite: list overdue: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	return collectOffers(rows)
}

// nullTime converts an optional timestamp for a nullable column.
func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// scanOffer scans a single offer row.
func scanOffer(row scanner) (*offer.Offer, error) {
	var (
		o            offer.Offer
		idStr        string
		jobStr       string
		candidateStr string
		statusStr    string
		dispatched   string
		deadline     string
		responded    sql.NullString
		created      string
		updated      string
	)
	err := row.Scan(
		&idStr, &jobStr, &candidateStr, &o.Attempt, &statusStr,
		&dispatched, &deadline, &responded,
		&o.DeclineReason, &o.DeclineNotes, &o.Score, &o.DistanceKm,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}

	o.Status = offer.Status(statusStr)

	if o.ID, err = id.ParseOfferID(idStr); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse offer id %q: %w", idStr, err)
	}
	if o.JobID, err = id.ParseJobID(jobStr); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse job id %q: %w", jobStr, err)
	}
	if o.CandidateID, err = id.ParseCandidateID(candidateStr); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse candidate id %q: %w", candidateStr, err)
	}
	if o.DispatchedAt, err = parseTime(dispatched); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse dispatched_at: %w", err)
	}
	if o.SLADeadline, err = parseTime(deadline); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse sla_deadline: %w", err)
	}
	if responded.Valid {
		t, parseErr := parseTime(responded.String)
		if parseErr != nil {
			return nil, fmt.Errorf("handoff/sqlite: parse responded_at: %w", parseErr)
		}
		o.RespondedAt = &t
	}
	if o.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse created_at: %w", err)
	}
	if o.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: parse updated_at: %w", err)
	}

	return &o, nil
}

// collectOffers collects all offers from query rows.
func collectOffers(rows *sql.Rows) ([]*offer.Offer, error) {
	var offers []*offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("handoff/sqlite: scan offer row: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("handoff/sqlite: iterate offer rows: %w", err)
	}
	return offers, nil
}
