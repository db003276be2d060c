package deadline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/handoff/id"
)

// deadlinesKey is the Sorted Set holding armed offer deadlines.
// Member = offer ID, score = deadline as Unix milliseconds.
const deadlinesKey = "handoff:deadlines"

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithPollInterval sets how often the queue checks for due entries.
func WithPollInterval(d time.Duration) QueueOption {
	return func(q *Queue) { q.pollInterval = d }
}

// WithClaimLimit caps how many due entries one poll claims.
func WithClaimLimit(n int) QueueOption {
	return func(q *Queue) { q.claimLimit = n }
}

// WithQueueLogger sets the structured logger.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) { q.logger = logger }
}

// WithQueueClock overrides the time source.
func WithQueueClock(now func() time.Time) QueueOption {
	return func(q *Queue) { q.now = now }
}

// Queue delivers offer deadlines with second-level latency through a Redis
// Sorted Set scored by deadline. Arm is called at dispatch time, Disarm on
// any early terminal transition; the poll loop claims due entries and hands
// them to the engine's deadline handler. Claiming is fetch-then-remove, so
// a crash between the two can redeliver — the handler is idempotent, so
// redelivery is harmless.
type Queue struct {
	client redis.Cmdable
	handle HandleFunc
	logger *slog.Logger
	now    func() time.Time

	pollInterval time.Duration
	claimLimit   int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewQueue creates a Queue. The caller owns the Redis client lifecycle.
func NewQueue(client redis.Cmdable, handle HandleFunc, opts ...QueueOption) *Queue {
	q := &Queue{
		client:       client,
		handle:       handle,
		logger:       slog.Default(),
		now:          time.Now,
		pollInterval: 1 * time.Second,
		claimLimit:   100,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Arm schedules a deadline delivery for an offer.
func (q *Queue) Arm(ctx context.Context, offerID id.OfferID, deadline time.Time) error {
	err := q.client.ZAdd(ctx, deadlinesKey, redis.Z{
		Score:  float64(deadline.UnixMilli()),
		Member: offerID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("deadline: arm %s: %w", offerID, err)
	}
	return nil
}

// Disarm removes an armed deadline. Disarming an offer that was never armed
// or already claimed is a no-op.
func (q *Queue) Disarm(ctx context.Context, offerID id.OfferID) error {
	if err := q.client.ZRem(ctx, deadlinesKey, offerID.String()).Err(); err != nil {
		return fmt.Errorf("deadline: disarm %s: %w", offerID, err)
	}
	return nil
}

// Start launches the poll goroutine.
func (q *Queue) Start(_ context.Context) error {
	q.wg.Add(1)
	go q.loop()
	q.logger.Info("deadline queue started",
		slog.Duration("poll_interval", q.pollInterval),
	)
	return nil
}

// Stop signals the queue to stop and waits for the goroutine to finish.
func (q *Queue) Stop(_ context.Context) error {
	close(q.stopCh)
	q.wg.Wait()
	q.logger.Info("deadline queue stopped")
	return nil
}

func (q *Queue) loop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.poll(context.Background())
		}
	}
}

// poll claims every due entry and delivers it.
func (q *Queue) poll(ctx context.Context) {
	now := q.now().UTC()

	members, err := q.client.ZRangeByScore(ctx, deadlinesKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: int64(q.claimLimit),
	}).Result()
	if err != nil {
		q.logger.Warn("deadline poll failed", slog.String("error", err.Error()))
		return
	}
	if len(members) == 0 {
		return
	}

	for _, member := range members {
		// Remove first so only one poller delivers under normal operation.
		removed, remErr := q.client.ZRem(ctx, deadlinesKey, member).Result()
		if remErr != nil {
			q.logger.Warn("deadline claim failed",
				slog.String("offer_id", member),
				slog.String("error", remErr.Error()),
			)
			continue
		}
		if removed == 0 {
			continue // another poller claimed it
		}

		offerID, parseErr := id.ParseOfferID(member)
		if parseErr != nil {
			q.logger.Error("malformed deadline entry dropped",
				slog.String("member", member),
				slog.String("error", parseErr.Error()),
			)
			continue
		}

		if handleErr := q.handle(ctx, offerID); handleErr != nil {
			q.logger.Error("deadline delivery failed",
				slog.String("offer_id", member),
				slog.String("error", handleErr.Error()),
			)
		}
	}

	q.logger.Debug("claimed due deadlines", slog.Int("count", len(members)))
}
