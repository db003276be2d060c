package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/notify"
)

func TestFuncAdapter(t *testing.T) {
	t.Parallel()

	want := errors.New("provider down")
	n := notify.Func(func(context.Context, id.CandidateID, notify.JobSummary) error {
		return want
	})

	if err := n.NotifyOffer(context.Background(), id.NewCandidateID(), notify.JobSummary{}); !errors.Is(err, want) {
		t.Errorf("err = %v, want the adapted function's error", err)
	}
}

func TestThrottledDelegates(t *testing.T) {
	t.Parallel()

	var delivered int
	inner := notify.Func(func(context.Context, id.CandidateID, notify.JobSummary) error {
		delivered++
		return nil
	})

	// Burst of 3 covers the whole wave without waiting.
	n := notify.NewThrottled(inner, 1, 3)
	for range 3 {
		if err := n.NotifyOffer(context.Background(), id.NewCandidateID(), notify.JobSummary{}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if delivered != 3 {
		t.Errorf("delivered = %d, want 3", delivered)
	}
}

func TestThrottledHonorsCancellation(t *testing.T) {
	t.Parallel()

	n := notify.NewThrottled(notify.Noop{}, 0.001, 1)

	ctx := context.Background()
	if err := n.NotifyOffer(ctx, id.NewCandidateID(), notify.JobSummary{}); err != nil {
		t.Fatalf("first notify: %v", err)
	}

	// The bucket is empty and refills far too slowly; the wait must abort
	// with the context instead of blocking.
	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := n.NotifyOffer(ctx, id.NewCandidateID(), notify.JobSummary{}); err == nil {
		t.Error("notify on an empty bucket with an expiring context should fail")
	}
}
