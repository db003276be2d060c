// Package audit defines the audit sink the engine emits dispatch
// transitions through. Recording is fire-and-forget: a failing recorder is
// logged and never rolls back or blocks a transition.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/handoff/id"
)

// Action constants for every audited dispatch transition.
const (
	ActionWaveDispatched = "dispatch.wave_dispatched"
	ActionOfferAccepted  = "dispatch.offer_accepted"
	ActionOfferDeclined  = "dispatch.offer_declined"
	ActionOfferTimeout   = "dispatch.offer_timeout"
	ActionOfferCancelled = "dispatch.offer_cancelled"
	ActionJobAssigned    = "dispatch.job_assigned"
	ActionJobWithdrawn   = "dispatch.job_withdrawn"
)

// Actor constants identify who drove a transition.
const (
	ActorCandidate = "candidate"
	ActorScheduler = "scheduler"
	ActorOperator  = "operator"
	ActorEngine    = "engine"
)

// Event is one audit record. From/To are offer statuses for offer
// transitions and job statuses for job transitions.
type Event struct {
	ID          id.EventID     `json:"id"`
	Action      string         `json:"action"`
	JobID       id.JobID       `json:"job_id"`
	OfferID     id.OfferID     `json:"offer_id,omitempty"`
	CandidateID id.CandidateID `json:"candidate_id,omitempty"`
	From        string         `json:"from,omitempty"`
	To          string         `json:"to,omitempty"`
	Actor       string         `json:"actor"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	At          time.Time      `json:"at"`
}

// Recorder is the interface audit backends implement. Callers inject their
// concrete audit trail at wiring time; the engine only ever sees this.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *Event) error
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Record(context.Context, *Event) error { return nil }

// Logger is a Recorder that writes events to a structured logger. It is
// the default sink when no external audit trail is wired.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a slog-backed Recorder.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// Record logs the event at info level.
func (l *Logger) Record(_ context.Context, event *Event) error {
	l.logger.Info("audit",
		slog.String("action", event.Action),
		slog.String("job_id", event.JobID.String()),
		slog.String("offer_id", event.OfferID.String()),
		slog.String("candidate_id", event.CandidateID.String()),
		slog.String("from", event.From),
		slog.String("to", event.To),
		slog.String("actor", event.Actor),
		slog.Time("at", event.At),
	)
	return nil
}
