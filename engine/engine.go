package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/handoff/audit"
	"github.com/xraph/handoff/candidate"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/match"
	"github.com/xraph/handoff/notify"
	"github.com/xraph/handoff/policy"
	"github.com/xraph/handoff/store"
)

// scopeName is the instrumentation scope for engine metrics and traces.
const scopeName = "github.com/xraph/handoff"

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the engine's time source. Used by tests to pin SLA
// deadlines.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithAudit sets the audit sink. Defaults to the slog-backed recorder.
func WithAudit(recorder audit.Recorder) Option {
	return func(e *Engine) { e.auditor = recorder }
}

// WithNotifier sets the notification dispatcher. Defaults to a no-op.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithPolicyResolver overrides the policy resolver. The default resolves
// against the aggregate store with hard-coded fallbacks.
func WithPolicyResolver(r *policy.Resolver) Option {
	return func(e *Engine) { e.policies = r }
}

// DeadlineArmer schedules and cancels low-latency deadline deliveries,
// typically the Redis-backed deadline queue. Arm/Disarm failures only cost
// latency: the periodic sweeper settles anything the armer misses.
type DeadlineArmer interface {
	Arm(ctx context.Context, offerID id.OfferID, deadline time.Time) error
	Disarm(ctx context.Context, offerID id.OfferID) error
}

// WithDeadlineArmer wires a deadline delivery queue into the engine. Without
// one, deadline enforcement falls entirely to the sweeper.
func WithDeadlineArmer(a DeadlineArmer) Option {
	return func(e *Engine) { e.deadlines = a }
}

// Engine is the dispatch orchestrator. Safe for concurrent use; all
// invariants are scoped to a single job's offer set, so operations on
// different jobs never contend.
type Engine struct {
	store     store.Store
	registry  candidate.Registry
	matcher   *match.Matcher
	policies  *policy.Resolver
	auditor   audit.Recorder
	notifier  notify.Notifier
	deadlines DeadlineArmer
	logger    *slog.Logger
	now       func() time.Time
	metrics   *metrics
	tracer    trace.Tracer
}

// New creates an Engine over the given store and candidate registry.
func New(st store.Store, registry candidate.Registry, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		registry: registry,
		logger:   slog.Default(),
		notifier: notify.Noop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.auditor == nil {
		e.auditor = audit.NewLogger(e.logger)
	}
	if e.policies == nil {
		e.policies = policy.NewResolver(st, e.logger)
	}
	e.matcher = match.New(registry,
		match.WithClock(e.now),
		match.WithLogger(e.logger),
	)
	e.metrics = newMetrics(otel.Meter(scopeName))
	e.tracer = otel.Tracer(scopeName)

	return e
}
