package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/audit"
	"github.com/xraph/handoff/escalate"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/job"
	"github.com/xraph/handoff/notify"
	"github.com/xraph/handoff/offer"
	"github.com/xraph/handoff/rank"
)

// Outcome classifies a dispatch call that did not fail. "Nothing to
// dispatch" conditions are outcomes, not errors: the caller decides
// whether an unmatched job is a problem.
type Outcome string

const (
	// OutcomeDispatched means a new wave of offers was created.
	OutcomeDispatched Outcome = "dispatched"
	// OutcomeNoCandidates means matching produced no eligible candidates.
	// The job's status is left untouched.
	OutcomeNoCandidates Outcome = "no_candidates"
	// OutcomeAllOffered means every matched candidate already holds an
	// offer for this job.
	OutcomeAllOffered Outcome = "all_candidates_offered"
	// OutcomeAwaitingResponses means offers from the current wave are
	// still pending; nothing new is dispatched.
	OutcomeAwaitingResponses Outcome = "awaiting_responses"
	// OutcomeAssigned means the job already carries an accepted offer;
	// dispatch completed its assignment instead of creating offers.
	OutcomeAssigned Outcome = "assigned"
)

// Result describes what a dispatch cycle did. Reason is the planner
// decision that drove the cycle.
type Result struct {
	Outcome Outcome
	Step    int
	Offers  []*offer.Offer
	Reason  escalate.Reason
}

// Dispatch initiates or continues dispatch for a job: match, rank, select
// the next wave, create one offer per selected candidate and arm its SLA
// deadline. Safe to call repeatedly; a job with pending offers or nothing
// left to offer yields a non-error Result.
func (e *Engine) Dispatch(ctx context.Context, jobID id.JobID) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "handoff.dispatch",
		trace.WithAttributes(attribute.String("job_id", jobID.String())),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	res, err := e.dispatch(ctx, jobID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
	span.SetStatus(codes.Ok, "")
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, jobID id.JobID) (*Result, error) {
	started := e.now()

	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	if j.Status != job.StatusUnassigned && j.Status != job.StatusDispatching {
		return nil, fmt.Errorf("dispatch: job %s is %s: %w", jobID, j.Status, handoff.ErrInvalidState)
	}

	if _, err = e.store.GetAssignmentByJob(ctx, jobID); err == nil {
		return nil, fmt.Errorf("dispatch: job %s: %w", jobID, handoff.ErrJobAssigned)
	} else if !errors.Is(err, handoff.ErrAssignmentNotFound) {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	pol := e.policies.Resolve(ctx, j.Category)

	existing, err := e.store.ListOffersByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	// An accepted offer whose assignment never landed means an accept was
	// interrupted. Finish it; never create offers past an acceptance.
	for _, o := range existing {
		if o.Status == offer.StatusAccepted {
			return e.completeAccept(ctx, j, o)
		}
	}

	// The guards above already admitted the job, so plan against the
	// dispatching state it is entering.
	decision := escalate.ShouldEscalate(job.StatusDispatching, existing, pol)
	if !decision.Escalate {
		if decision.Reason == escalate.ReasonMaxOffersReached {
			return nil, fmt.Errorf("dispatch: job %s has %d offers (max %d): %w",
				jobID, len(existing), pol.MaxOffers, handoff.ErrExhausted)
		}
		return &Result{Outcome: OutcomeAwaitingResponses, Reason: decision.Reason}, nil
	}
	step := decision.NextStep

	matches, err := e.matcher.Match(ctx, j)
	if err != nil {
		return nil, fmt.Errorf("dispatch: match: %w", err)
	}
	if len(matches) == 0 {
		e.logger.Info("no eligible candidates",
			slog.String("job_id", jobID.String()),
			slog.String("category", j.Category),
		)
		return &Result{Outcome: OutcomeNoCandidates, Reason: decision.Reason}, nil
	}

	ranked := rank.Rank(matches)
	wave := escalate.SelectWave(ranked, pol, step, escalate.OfferedSet(existing))
	if remaining := pol.MaxOffers - len(existing); len(wave) > remaining {
		wave = wave[:remaining]
	}
	if len(wave) == 0 {
		return &Result{Outcome: OutcomeAllOffered, Step: step, Reason: decision.Reason}, nil
	}

	if j.Status == job.StatusUnassigned {
		if err = e.markDispatching(ctx, jobID); err != nil {
			return nil, err
		}
	}

	offers, err := e.createWave(ctx, j, wave, len(existing), pol.SLA)
	if err != nil {
		return nil, err
	}

	e.metrics.recordWave(ctx, j.Category, len(offers), e.now().Sub(started))
	e.logger.Info("wave dispatched",
		slog.String("job_id", jobID.String()),
		slog.Int("step", step),
		slog.String("reason", string(decision.Reason)),
		slog.Int("offers", len(offers)),
		slog.Int("total_offers", len(existing)+len(offers)),
	)

	return &Result{Outcome: OutcomeDispatched, Step: step, Offers: offers, Reason: decision.Reason}, nil
}

// markDispatching moves an unassigned job into dispatching, tolerating a
// concurrent caller having done the same.
func (e *Engine) markDispatching(ctx context.Context, jobID id.JobID) error {
	err := e.store.SetJobStatus(ctx, jobID, job.StatusUnassigned, job.StatusDispatching)
	if err == nil {
		return nil
	}
	if !errors.Is(err, handoff.ErrConflict) {
		return fmt.Errorf("dispatch: %w", err)
	}

	j, getErr := e.store.GetJob(ctx, jobID)
	if getErr != nil {
		return fmt.Errorf("dispatch: %w", getErr)
	}
	if j.Status != job.StatusDispatching {
		return fmt.Errorf("dispatch: job %s moved to %s: %w", jobID, j.Status, handoff.ErrConflict)
	}
	return nil
}

// createWave builds and persists one offer per wave member, then emits
// audit records and notifications. Audit and notification failures are
// logged, never rolled back.
func (e *Engine) createWave(ctx context.Context, j *job.Job, wave []rank.Ranked, existing int, sla time.Duration) ([]*offer.Offer, error) {
	now := e.now().UTC()

	offers := make([]*offer.Offer, len(wave))
	for i, r := range wave {
		offers[i] = &offer.Offer{
			Entity:       handoff.NewEntity(),
			ID:           id.NewOfferID(),
			JobID:        j.ID,
			CandidateID:  r.Candidate.ID,
			Attempt:      existing + i + 1,
			Status:       offer.StatusPending,
			DispatchedAt: now,
			SLADeadline:  now.Add(sla),
			Score:        r.Score,
			DistanceKm:   r.DistanceKm,
		}
	}

	if err := e.store.CreateOffers(ctx, offers); err != nil {
		return nil, fmt.Errorf("dispatch: create offers: %w", err)
	}

	for _, o := range offers {
		e.armDeadline(ctx, o.ID, o.SLADeadline)

		e.audit(ctx, &audit.Event{
			Action:      audit.ActionWaveDispatched,
			JobID:       j.ID,
			OfferID:     o.ID,
			CandidateID: o.CandidateID,
			To:          string(offer.StatusPending),
			Actor:       audit.ActorEngine,
			Metadata: map[string]any{
				"attempt": o.Attempt,
				"score":   o.Score,
			},
			At: now,
		})

		if err := e.notifier.NotifyOffer(ctx, o.CandidateID, notify.JobSummary{
			JobID:       j.ID,
			OfferID:     o.ID,
			Category:    j.Category,
			DistanceKm:  o.DistanceKm,
			SLADeadline: o.SLADeadline,
		}); err != nil {
			e.logger.Warn("offer notification failed",
				slog.String("offer_id", o.ID.String()),
				slog.String("candidate_id", o.CandidateID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	return offers, nil
}

// armDeadline schedules a low-latency deadline delivery when a queue is
// wired. Failures are logged; the sweeper is the backstop.
func (e *Engine) armDeadline(ctx context.Context, offerID id.OfferID, deadline time.Time) {
	if e.deadlines == nil {
		return
	}
	if err := e.deadlines.Arm(ctx, offerID, deadline); err != nil {
		e.logger.Warn("deadline arm failed",
			slog.String("offer_id", offerID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// disarmDeadline cancels a scheduled delivery after an early terminal
// transition. Failures are logged; a stale delivery is an idempotent no-op.
func (e *Engine) disarmDeadline(ctx context.Context, offerID id.OfferID) {
	if e.deadlines == nil {
		return
	}
	if err := e.deadlines.Disarm(ctx, offerID); err != nil {
		e.logger.Warn("deadline disarm failed",
			slog.String("offer_id", offerID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// audit records an event through the audit sink; failures are logged.
func (e *Engine) audit(ctx context.Context, event *audit.Event) {
	event.ID = id.NewEventID()
	if err := e.auditor.Record(ctx, event); err != nil {
		e.logger.Warn("audit record failed",
			slog.String("action", event.Action),
			slog.String("job_id", event.JobID.String()),
			slog.String("error", err.Error()),
		)
	}
}
