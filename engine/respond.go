package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/assignment"
	"github.com/xraph/handoff/audit"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/job"
	"github.com/xraph/handoff/offer"
)

// Accept records a candidate accepting an offer and assigns the job to
// them. Exactly one accept per job can succeed: racing accepts, accepts on
// already-settled offers and accepts past the SLA deadline all fail with a
// conflict-class error and change nothing.
func (e *Engine) Accept(ctx context.Context, offerID id.OfferID, candidateID id.CandidateID) (*assignment.Assignment, error) {
	ctx, span := e.tracer.Start(ctx, "handoff.accept",
		trace.WithAttributes(attribute.String("offer_id", offerID.String())),
	)
	defer span.End()

	a, err := e.accept(ctx, offerID, candidateID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return a, nil
}

func (e *Engine) accept(ctx context.Context, offerID id.OfferID, candidateID id.CandidateID) (*assignment.Assignment, error) {
	now := e.now().UTC()

	o, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}
	if o.CandidateID.String() != candidateID.String() {
		return nil, fmt.Errorf("accept: offer %s does not belong to candidate %s: %w",
			offerID, candidateID, handoff.ErrInvalidState)
	}
	if o.Status != offer.StatusPending {
		e.metrics.recordConflict(ctx, "accept")
		return nil, fmt.Errorf("accept: offer %s is %s: %w", offerID, o.Status, handoff.ErrConflict)
	}
	if now.After(o.SLADeadline) {
		e.metrics.recordConflict(ctx, "accept")
		return nil, fmt.Errorf("accept: offer %s deadline passed: %w", offerID, handoff.ErrSLAExpired)
	}

	// The job status CAS is the cross-offer arbiter: of all concurrent
	// accepts for one job, exactly one moves it out of dispatching.
	if err = e.store.SetJobStatus(ctx, o.JobID, job.StatusDispatching, job.StatusAssigned); err != nil {
		if errors.Is(err, handoff.ErrConflict) {
			e.metrics.recordConflict(ctx, "accept")
			return nil, fmt.Errorf("accept: job %s already settled: %w", o.JobID, handoff.ErrConflict)
		}
		return nil, fmt.Errorf("accept: %w", err)
	}

	updated, err := e.store.TransitionOffer(ctx, offerID, offer.StatusPending, offer.StatusAccepted, offer.Response{At: now})
	if err != nil {
		// A deadline delivery settled the offer between our read and the
		// transition. Hand the job back so dispatch can continue.
		if rollbackErr := e.store.SetJobStatus(ctx, o.JobID, job.StatusAssigned, job.StatusDispatching); rollbackErr != nil {
			e.logger.Error("accept rollback failed",
				slog.String("job_id", o.JobID.String()),
				slog.String("error", rollbackErr.Error()),
			)
		}
		e.metrics.recordConflict(ctx, "accept")
		return nil, fmt.Errorf("accept: %w", err)
	}

	a := &assignment.Assignment{
		Entity:      handoff.NewEntity(),
		ID:          id.NewAssignmentID(),
		JobID:       o.JobID,
		CandidateID: candidateID,
		AssignedAt:  now,
	}
	if err = e.store.CreateAssignment(ctx, a); err != nil {
		// The offer is already accepted; hand the job back to dispatching
		// so the sweeper's resume pass retries the assignment write.
		if rollbackErr := e.store.SetJobStatus(ctx, o.JobID, job.StatusAssigned, job.StatusDispatching); rollbackErr != nil {
			e.logger.Error("accept rollback failed",
				slog.String("job_id", o.JobID.String()),
				slog.String("error", rollbackErr.Error()),
			)
		}
		return nil, fmt.Errorf("accept: %w", err)
	}

	cancelled, err := e.store.CancelPending(ctx, o.JobID, offerID, now)
	if err != nil {
		// Assignment is durable; sibling cancel is repairable by the sweeper.
		e.logger.Error("sibling cancel failed",
			slog.String("job_id", o.JobID.String()),
			slog.String("error", err.Error()),
		)
	}
	e.disarmDeadline(ctx, offerID)

	e.audit(ctx, &audit.Event{
		Action:      audit.ActionOfferAccepted,
		JobID:       o.JobID,
		OfferID:     offerID,
		CandidateID: candidateID,
		From:        string(offer.StatusPending),
		To:          string(offer.StatusAccepted),
		Actor:       audit.ActorCandidate,
		At:          now,
	})
	e.audit(ctx, &audit.Event{
		Action:      audit.ActionJobAssigned,
		JobID:       o.JobID,
		OfferID:     offerID,
		CandidateID: candidateID,
		From:        string(job.StatusDispatching),
		To:          string(job.StatusAssigned),
		Actor:       audit.ActorEngine,
		Metadata:    map[string]any{"cancelled_offers": cancelled},
		At:          now,
	})
	e.metrics.recordResponse(ctx, string(offer.StatusAccepted))

	e.logger.Info("offer accepted",
		slog.String("job_id", o.JobID.String()),
		slog.String("offer_id", offerID.String()),
		slog.String("candidate_id", candidateID.String()),
		slog.Int64("cancelled_offers", cancelled),
		slog.Int("attempt", updated.Attempt),
	)

	return a, nil
}

// completeAccept finishes an accept whose assignment write failed: the
// offer is already accepted, so the job must settle on its candidate rather
// than dispatch further. Every step is idempotent, so the sweeper can retry
// until the repair sticks.
func (e *Engine) completeAccept(ctx context.Context, j *job.Job, o *offer.Offer) (*Result, error) {
	now := e.now().UTC()

	assignedAt := now
	if o.RespondedAt != nil {
		assignedAt = *o.RespondedAt
	}
	a := &assignment.Assignment{
		Entity:      handoff.NewEntity(),
		ID:          id.NewAssignmentID(),
		JobID:       j.ID,
		CandidateID: o.CandidateID,
		AssignedAt:  assignedAt,
	}
	if err := e.store.CreateAssignment(ctx, a); err != nil && !errors.Is(err, handoff.ErrJobAssigned) {
		return nil, fmt.Errorf("dispatch: complete accept: %w", err)
	}

	if j.Status != job.StatusAssigned {
		if err := e.store.SetJobStatus(ctx, j.ID, j.Status, job.StatusAssigned); err != nil && !errors.Is(err, handoff.ErrConflict) {
			return nil, fmt.Errorf("dispatch: complete accept: %w", err)
		}
	}

	cancelled, err := e.store.CancelPending(ctx, j.ID, o.ID, now)
	if err != nil {
		e.logger.Error("sibling cancel failed",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	e.audit(ctx, &audit.Event{
		Action:      audit.ActionJobAssigned,
		JobID:       j.ID,
		OfferID:     o.ID,
		CandidateID: o.CandidateID,
		From:        string(j.Status),
		To:          string(job.StatusAssigned),
		Actor:       audit.ActorEngine,
		Metadata: map[string]any{
			"recovered":        true,
			"cancelled_offers": cancelled,
		},
		At: now,
	})

	e.logger.Info("completed interrupted assignment",
		slog.String("job_id", j.ID.String()),
		slog.String("offer_id", o.ID.String()),
		slog.String("candidate_id", o.CandidateID.String()),
	)

	return &Result{Outcome: OutcomeAssigned}, nil
}

// Decline records a candidate declining an offer and immediately
// re-evaluates dispatch for the job. Reason is a short identifier
// ("too_far", "unavailable", …); notes are free-form.
func (e *Engine) Decline(ctx context.Context, offerID id.OfferID, candidateID id.CandidateID, reason, notes string) error {
	ctx, span := e.tracer.Start(ctx, "handoff.decline",
		trace.WithAttributes(attribute.String("offer_id", offerID.String())),
	)
	defer span.End()

	now := e.now().UTC()

	o, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return fmt.Errorf("decline: %w", err)
	}
	if o.CandidateID.String() != candidateID.String() {
		return fmt.Errorf("decline: offer %s does not belong to candidate %s: %w",
			offerID, candidateID, handoff.ErrInvalidState)
	}

	if _, err = e.store.TransitionOffer(ctx, offerID, offer.StatusPending, offer.StatusDeclined, offer.Response{
		At:            now,
		DeclineReason: reason,
		DeclineNotes:  notes,
	}); err != nil {
		if handoff.IsConflict(err) {
			e.metrics.recordConflict(ctx, "decline")
		}
		return fmt.Errorf("decline: %w", err)
	}
	e.disarmDeadline(ctx, offerID)

	e.audit(ctx, &audit.Event{
		Action:      audit.ActionOfferDeclined,
		JobID:       o.JobID,
		OfferID:     offerID,
		CandidateID: candidateID,
		From:        string(offer.StatusPending),
		To:          string(offer.StatusDeclined),
		Actor:       audit.ActorCandidate,
		Metadata:    map[string]any{"reason": reason},
		At:          now,
	})
	e.metrics.recordResponse(ctx, string(offer.StatusDeclined))

	e.logger.Info("offer declined",
		slog.String("job_id", o.JobID.String()),
		slog.String("offer_id", offerID.String()),
		slog.String("reason", reason),
	)

	e.continueDispatch(ctx, o.JobID)
	return nil
}

// HandleDeadline settles an offer whose SLA deadline has passed and
// re-evaluates dispatch for the job. Idempotent: an offer that already left
// pending, or whose deadline has not yet arrived, is a no-op. Both the
// periodic sweeper and the delayed-delivery queue feed into this, so double
// delivery is expected.
func (e *Engine) HandleDeadline(ctx context.Context, offerID id.OfferID) error {
	ctx, span := e.tracer.Start(ctx, "handoff.handle_deadline",
		trace.WithAttributes(attribute.String("offer_id", offerID.String())),
	)
	defer span.End()

	now := e.now().UTC()

	o, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return fmt.Errorf("handle deadline: %w", err)
	}
	if !o.Overdue(now) {
		return nil
	}

	if _, err = e.store.TransitionOffer(ctx, offerID, offer.StatusPending, offer.StatusTimeout, offer.Response{At: now}); err != nil {
		if handoff.IsConflict(err) {
			// A response beat the deadline delivery.
			return nil
		}
		return fmt.Errorf("handle deadline: %w", err)
	}

	e.audit(ctx, &audit.Event{
		Action:      audit.ActionOfferTimeout,
		JobID:       o.JobID,
		OfferID:     offerID,
		CandidateID: o.CandidateID,
		From:        string(offer.StatusPending),
		To:          string(offer.StatusTimeout),
		Actor:       audit.ActorScheduler,
		At:          now,
	})
	e.metrics.recordResponse(ctx, string(offer.StatusTimeout))

	e.logger.Info("offer timed out",
		slog.String("job_id", o.JobID.String()),
		slog.String("offer_id", offerID.String()),
		slog.Time("deadline", o.SLADeadline),
	)

	e.continueDispatch(ctx, o.JobID)
	return nil
}

// Withdraw pulls a job out of dispatch, cancelling all of its pending
// offers. An assigned job cannot be withdrawn through the engine.
func (e *Engine) Withdraw(ctx context.Context, jobID id.JobID) error {
	ctx, span := e.tracer.Start(ctx, "handoff.withdraw",
		trace.WithAttributes(attribute.String("job_id", jobID.String())),
	)
	defer span.End()

	now := e.now().UTC()

	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	if j.Status == job.StatusAssigned {
		return fmt.Errorf("withdraw: job %s: %w", jobID, handoff.ErrJobAssigned)
	}

	cancelled, err := e.store.CancelPending(ctx, jobID, id.Nil, now)
	if err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}

	if j.Status == job.StatusDispatching {
		if err = e.store.SetJobStatus(ctx, jobID, job.StatusDispatching, job.StatusUnassigned); err != nil {
			if errors.Is(err, handoff.ErrConflict) {
				return fmt.Errorf("withdraw: job %s settled concurrently: %w", jobID, handoff.ErrConflict)
			}
			return fmt.Errorf("withdraw: %w", err)
		}
	}

	e.audit(ctx, &audit.Event{
		Action:   audit.ActionJobWithdrawn,
		JobID:    jobID,
		From:     string(j.Status),
		To:       string(job.StatusUnassigned),
		Actor:    audit.ActorOperator,
		Metadata: map[string]any{"cancelled_offers": cancelled},
		At:       now,
	})

	e.logger.Info("job withdrawn",
		slog.String("job_id", jobID.String()),
		slog.Int64("cancelled_offers", cancelled),
	)

	return nil
}

// Assign force-assigns a job to a candidate, bypassing matching and
// ranking. The one-assignment-per-job invariant and sibling cancellation
// still apply; the resulting assignment is flagged as a manual override.
func (e *Engine) Assign(ctx context.Context, jobID id.JobID, candidateID id.CandidateID) (*assignment.Assignment, error) {
	ctx, span := e.tracer.Start(ctx, "handoff.assign",
		trace.WithAttributes(attribute.String("job_id", jobID.String())),
	)
	defer span.End()

	now := e.now().UTC()

	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("assign: %w", err)
	}
	if j.Status == job.StatusAssigned {
		return nil, fmt.Errorf("assign: job %s: %w", jobID, handoff.ErrJobAssigned)
	}

	if err = e.store.SetJobStatus(ctx, jobID, j.Status, job.StatusAssigned); err != nil {
		if errors.Is(err, handoff.ErrConflict) {
			e.metrics.recordConflict(ctx, "assign")
			return nil, fmt.Errorf("assign: job %s changed concurrently: %w", jobID, handoff.ErrConflict)
		}
		return nil, fmt.Errorf("assign: %w", err)
	}

	a := &assignment.Assignment{
		Entity:         handoff.NewEntity(),
		ID:             id.NewAssignmentID(),
		JobID:          jobID,
		CandidateID:    candidateID,
		AssignedAt:     now,
		ManualOverride: true,
	}
	if err = e.store.CreateAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("assign: %w", err)
	}

	cancelled, err := e.store.CancelPending(ctx, jobID, id.Nil, now)
	if err != nil {
		e.logger.Error("sibling cancel failed",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()),
		)
	}

	e.audit(ctx, &audit.Event{
		Action:      audit.ActionJobAssigned,
		JobID:       jobID,
		CandidateID: candidateID,
		From:        string(j.Status),
		To:          string(job.StatusAssigned),
		Actor:       audit.ActorOperator,
		Metadata: map[string]any{
			"manual_override":  true,
			"cancelled_offers": cancelled,
		},
		At: now,
	})

	e.logger.Info("job force-assigned",
		slog.String("job_id", jobID.String()),
		slog.String("candidate_id", candidateID.String()),
		slog.Int64("cancelled_offers", cancelled),
	)

	return a, nil
}

// continueDispatch re-evaluates dispatch for a job after a terminal offer
// transition. Failures are logged, never surfaced: the response that
// triggered the re-evaluation already succeeded, and the sweeper retries
// stalled jobs.
func (e *Engine) continueDispatch(ctx context.Context, jobID id.JobID) {
	res, err := e.dispatch(ctx, jobID)
	if err != nil {
		if errors.Is(err, handoff.ErrExhausted) {
			e.logger.Info("job exhausted all offers",
				slog.String("job_id", jobID.String()),
			)
			return
		}
		e.logger.Warn("dispatch continuation failed",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	if res.Outcome != OutcomeDispatched {
		e.logger.Debug("dispatch continuation idle",
			slog.String("job_id", jobID.String()),
			slog.String("outcome", string(res.Outcome)),
		)
	}
}
