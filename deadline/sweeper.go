package deadline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/backoff"
	"github.com/xraph/handoff/escalate"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/job"
	"github.com/xraph/handoff/offer"
	"github.com/xraph/handoff/policy"
	"github.com/xraph/handoff/store"
)

// HandleFunc settles one overdue offer. The engine provides the
// implementation; a func type here breaks the import cycle.
type HandleFunc func(ctx context.Context, offerID id.OfferID) error

// ResumeFunc re-evaluates dispatch for a job that has offers budget left
// but nothing in flight.
type ResumeFunc func(ctx context.Context, jobID id.JobID) error

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithInterval sets how often the sweeper scans for overdue offers.
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.interval = d }
}

// WithBatchSize caps how many overdue offers one sweep settles.
func WithBatchSize(n int) SweeperOption {
	return func(s *Sweeper) { s.batch = n }
}

// WithBackoff sets the delay strategy applied after consecutive failed
// sweeps.
func WithBackoff(strategy backoff.Strategy) SweeperOption {
	return func(s *Sweeper) { s.backoff = strategy }
}

// WithSweeperLogger sets the structured logger.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = logger }
}

// WithSweeperClock overrides the time source.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.now = now }
}

// Sweeper scans the store on a tick loop for pending offers past their SLA
// deadline and delivers each to the engine's deadline handler. It also
// resumes dispatching jobs the escalation planner says need another wave,
// which unsticks jobs whose continuation dispatch failed.
type Sweeper struct {
	store    store.Store
	handle   HandleFunc
	resume   ResumeFunc
	workerID id.WorkerID
	policies *policy.Resolver
	logger   *slog.Logger
	now      func() time.Time

	interval time.Duration
	batch    int
	backoff  backoff.Strategy

	// failures counts consecutive failed sweeps for backoff.
	failures int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSweeper creates a Sweeper. handle is mandatory; resume may be nil to
// disable the stalled-job pass.
func NewSweeper(st store.Store, handle HandleFunc, resume ResumeFunc, opts ...SweeperOption) *Sweeper {
	cfg := handoff.DefaultConfig()
	s := &Sweeper{
		store:    st,
		handle:   handle,
		resume:   resume,
		workerID: id.NewWorkerID(),
		logger:   slog.Default(),
		now:      time.Now,
		interval: cfg.SweepInterval,
		batch:    cfg.SweepBatch,
		backoff:  backoff.DefaultStrategy(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.policies = policy.NewResolver(st, s.logger)
	return s
}

// Start launches the sweep goroutine.
func (s *Sweeper) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.loop()
	s.logger.Info("deadline sweeper started",
		slog.String("worker_id", s.workerID.String()),
		slog.Duration("interval", s.interval),
		slog.Int("batch", s.batch),
	)
	return nil
}

// Stop signals the sweeper to stop and waits for the goroutine to finish.
func (s *Sweeper) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("deadline sweeper stopped")
	return nil
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			if err := s.Sweep(context.Background()); err != nil {
				s.failures++
				delay := s.backoff.Delay(s.failures)
				s.logger.Warn("sweep failed",
					slog.Int("consecutive_failures", s.failures),
					slog.Duration("retry_in", delay),
					slog.String("error", err.Error()),
				)
				timer.Reset(delay)
				continue
			}
			s.failures = 0
			timer.Reset(s.interval)
		}
	}
}

// Sweep runs one scan: settle overdue offers, then resume stalled jobs.
// Exported so operators can trigger an immediate pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now().UTC()

	overdue, err := s.store.ListOverdue(ctx, now, s.batch)
	if err != nil {
		return err
	}

	for _, o := range overdue {
		if err := s.handle(ctx, o.ID); err != nil {
			s.logger.Error("deadline delivery failed",
				slog.String("offer_id", o.ID.String()),
				slog.String("job_id", o.JobID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	if len(overdue) > 0 {
		s.logger.Info("swept overdue offers",
			slog.Int("count", len(overdue)),
		)
	}

	if s.resume != nil {
		if err := s.resumeStalled(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resumeStalled re-dispatches jobs stuck in dispatching. The escalation
// planner decides which jobs need another wave; exhausted jobs are left for
// the operator. Jobs holding an accepted offer are always resumed so an
// interrupted assignment write gets completed.
func (s *Sweeper) resumeStalled(ctx context.Context) error {
	jobs, err := s.store.ListJobsByStatus(ctx, job.StatusDispatching, job.ListOpts{Limit: s.batch})
	if err != nil {
		return err
	}

	for _, j := range jobs {
		offers, listErr := s.store.ListOffersByJob(ctx, j.ID)
		if listErr != nil {
			return listErr
		}

		pol := s.policies.Resolve(ctx, j.Category)
		decision := escalate.ShouldEscalate(j.Status, offers, pol)
		if !decision.Escalate && !hasAccepted(offers) {
			continue
		}

		s.logger.Info("resuming stalled job",
			slog.String("job_id", j.ID.String()),
			slog.String("reason", string(decision.Reason)),
		)
		if resumeErr := s.resume(ctx, j.ID); resumeErr != nil {
			s.logger.Warn("resume dispatch failed",
				slog.String("job_id", j.ID.String()),
				slog.String("error", resumeErr.Error()),
			)
		}
	}
	return nil
}

func hasAccepted(offers []*offer.Offer) bool {
	for _, o := range offers {
		if o.Status == offer.StatusAccepted {
			return true
		}
	}
	return false
}
