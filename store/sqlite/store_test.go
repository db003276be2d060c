package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/assignment"
	"github.com/xraph/handoff/geo"
	"github.com/xraph/handoff/id"
	"github.com/xraph/handoff/job"
	"github.com/xraph/handoff/offer"
	"github.com/xraph/handoff/policy"
	"github.com/xraph/handoff/store/sqlite"
)

var base = time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.New(filepath.Join(t.TempDir(), "handoff.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := st.Close(); closeErr != nil {
			t.Errorf("close: %v", closeErr)
		}
	})
	if err = st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func seedJob(t *testing.T, st *sqlite.Store) *job.Job {
	t.Helper()

	j := &job.Job{
		Entity:   handoff.NewEntity(),
		ID:       id.NewJobID(),
		Category: "plumbing",
		Location: &geo.Point{Lat: 52.52, Lng: 13.405},
		Status:   job.StatusUnassigned,
	}
	if err := st.CreateJob(context.Background(), j); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

func newOffer(jobID id.JobID, attempt int, deadline time.Time) *offer.Offer {
	return &offer.Offer{
		Entity:       handoff.NewEntity(),
		ID:           id.NewOfferID(),
		JobID:        jobID,
		CandidateID:  id.NewCandidateID(),
		Attempt:      attempt,
		Status:       offer.StatusPending,
		DispatchedAt: deadline.Add(-5 * time.Minute),
		SLADeadline:  deadline,
		Score:        0.75,
		DistanceKm:   3.2,
	}
}

func TestJobRoundTrip(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	j := seedJob(t, st)

	got, err := st.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Category != j.Category || got.Status != j.Status {
		t.Errorf("got %+v, want stored job back", got)
	}
	if got.Location == nil || got.Location.Lat != j.Location.Lat {
		t.Errorf("location = %+v, want %+v", got.Location, j.Location)
	}

	_, err = st.GetJob(ctx, id.NewJobID())
	if !errors.Is(err, handoff.ErrJobNotFound) {
		t.Errorf("missing job: err = %v, want ErrJobNotFound", err)
	}
}

func TestJobWithoutLocation(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	j := &job.Job{
		Entity:   handoff.NewEntity(),
		ID:       id.NewJobID(),
		Category: "remote",
		Status:   job.StatusUnassigned,
	}
	if err := st.CreateJob(ctx, j); err != nil {
		t.Fatalf("create job: %v", err)
	}

	got, err := st.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Location != nil {
		t.Errorf("location = %+v, want nil round-tripped", got.Location)
	}
}

func TestSetJobStatusConditional(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	j := seedJob(t, st)

	if err := st.SetJobStatus(ctx, j.ID, job.StatusUnassigned, job.StatusDispatching); err != nil {
		t.Fatalf("transition: %v", err)
	}

	err := st.SetJobStatus(ctx, j.ID, job.StatusUnassigned, job.StatusDispatching)
	if !errors.Is(err, handoff.ErrConflict) {
		t.Errorf("stale transition: err = %v, want ErrConflict", err)
	}

	err = st.SetJobStatus(ctx, id.NewJobID(), job.StatusUnassigned, job.StatusDispatching)
	if !errors.Is(err, handoff.ErrJobNotFound) {
		t.Errorf("missing job: err = %v, want ErrJobNotFound", err)
	}
}

func TestListJobsByStatus(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	j1 := seedJob(t, st)
	j2 := seedJob(t, st)
	if err := st.SetJobStatus(ctx, j2.ID, job.StatusUnassigned, job.StatusDispatching); err != nil {
		t.Fatalf("transition: %v", err)
	}

	unassigned, err := st.ListJobsByStatus(ctx, job.StatusUnassigned, job.ListOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unassigned) != 1 || unassigned[0].ID.String() != j1.ID.String() {
		t.Errorf("unassigned = %d jobs, want only the untouched one", len(unassigned))
	}
}

func TestCreateOffersAtomicDuplicate(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	j := seedJob(t, st)

	first := newOffer(j.ID, 1, base)
	if err := st.CreateOffers(ctx, []*offer.Offer{first}); err != nil {
		t.Fatalf("create offers: %v", err)
	}

	dup := newOffer(j.ID, 2, base)
	dup.CandidateID = first.CandidateID
	fresh := newOffer(j.ID, 3, base)

	err := st.CreateOffers(ctx, []*offer.Offer{fresh, dup})
	if !errors.Is(err, handoff.ErrDuplicateOffer) {
		t.Fatalf("duplicate pair: err = %v, want ErrDuplicateOffer", err)
	}

	offers, listErr := st.ListOffersByJob(ctx, j.ID)
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(offers) != 1 {
		t.Errorf("offers after rolled-back batch = %d, want 1", len(offers))
	}
}

func TestOfferRoundTrip(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	j := seedJob(t, st)
	o := newOffer(j.ID, 1, base)
	if err := st.CreateOffers(ctx, []*offer.Offer{o}); err != nil {
		t.Fatalf("create offers: %v", err)
	}

	got, err := st.GetOffer(ctx, o.ID)
	if err != nil {
		t.Fatalf("get offer: %v", err)
	}
	if got.Attempt != 1 || got.Score != o.Score || got.DistanceKm != o.DistanceKm {
		t.Errorf("got %+v, want stored offer back", got)
	}
	if !got.SLADeadline.Equal(o.SLADeadline) {
		t.Errorf("deadline = %v, want %v", got.SLADeadline, o.SLADeadline)
	}
	if got.RespondedAt != nil {
		t.Errorf("responded at = %v, want nil for pending offer", got.RespondedAt)
	}
}

func TestTransitionOfferCAS(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	j := seedJob(t, st)
	o := newOffer(j.ID, 1, base)
	if err := st.CreateOffers(ctx, []*offer.Offer{o}); err != nil {
		t.Fatalf("create offers: %v", err)
	}

	updated, err := st.TransitionOffer(ctx, o.ID, offer.StatusPending, offer.StatusDeclined, offer.Response{
		At:            base,
		DeclineReason: "too_far",
		DeclineNotes:  "other side of town",
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != offer.StatusDeclined || updated.DeclineNotes != "other side of town" {
		t.Errorf("updated = %+v, want declined with notes", updated)
	}
	if updated.RespondedAt == nil || !updated.RespondedAt.Equal(base) {
		t.Errorf("responded at = %v, want %v", updated.RespondedAt, base)
	}

	_, err = st.TransitionOffer(ctx, o.ID, offer.StatusPending, offer.StatusAccepted, offer.Response{At: base})
	if !errors.Is(err, handoff.ErrConflict) {
		t.Errorf("raced transition: err = %v, want ErrConflict", err)
	}

	_, err = st.TransitionOffer(ctx, o.ID, offer.StatusDeclined, offer.StatusAccepted, offer.Response{At: base})
	if !errors.Is(err, handoff.ErrInvalidState) {
		t.Errorf("terminal transition: err = %v, want ErrInvalidState", err)
	}

	_, err = st.TransitionOffer(ctx, id.NewOfferID(), offer.StatusPending, offer.StatusDeclined, offer.Response{At: base})
	if !errors.Is(err, handoff.ErrOfferNotFound) {
		t.Errorf("missing offer: err = %v, want ErrOfferNotFound", err)
	}
}

func TestCancelPendingExcludesWinner(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	j := seedJob(t, st)
	winner := newOffer(j.ID, 1, base)
	loser := newOffer(j.ID, 2, base)
	if err := st.CreateOffers(ctx, []*offer.Offer{winner, loser}); err != nil {
		t.Fatalf("create offers: %v", err)
	}

	count, err := st.CancelPending(ctx, j.ID, winner.ID, base)
	if err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if count != 1 {
		t.Errorf("cancelled = %d, want 1", count)
	}

	w, _ := st.GetOffer(ctx, winner.ID)
	if w.Status != offer.StatusPending {
		t.Errorf("winner status = %s, want still pending", w.Status)
	}
	l, _ := st.GetOffer(ctx, loser.ID)
	if l.Status != offer.StatusCancelled {
		t.Errorf("loser status = %s, want cancelled", l.Status)
	}
}

func TestListOverdueOrderAndLimit(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	j := seedJob(t, st)
	oldest := newOffer(j.ID, 1, base.Add(-3*time.Minute))
	middle := newOffer(j.ID, 2, base.Add(-2*time.Minute))
	future := newOffer(j.ID, 3, base.Add(time.Minute))
	if err := st.CreateOffers(ctx, []*offer.Offer{middle, future, oldest}); err != nil {
		t.Fatalf("create offers: %v", err)
	}

	overdue, err := st.ListOverdue(ctx, base, 10)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(overdue) != 2 {
		t.Fatalf("overdue = %d, want 2", len(overdue))
	}
	if overdue[0].ID.String() != oldest.ID.String() {
		t.Error("overdue offers not in oldest-deadline-first order")
	}
}

func TestAssignmentUniquePerJob(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	j := seedJob(t, st)
	a := &assignment.Assignment{
		Entity:         handoff.NewEntity(),
		ID:             id.NewAssignmentID(),
		JobID:          j.ID,
		CandidateID:    id.NewCandidateID(),
		AssignedAt:     base,
		ManualOverride: true,
	}
	if err := st.CreateAssignment(ctx, a); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	rival := &assignment.Assignment{
		Entity:      handoff.NewEntity(),
		ID:          id.NewAssignmentID(),
		JobID:       j.ID,
		CandidateID: id.NewCandidateID(),
		AssignedAt:  base,
	}
	err := st.CreateAssignment(ctx, rival)
	if !errors.Is(err, handoff.ErrJobAssigned) {
		t.Errorf("second assignment: err = %v, want ErrJobAssigned", err)
	}

	got, err := st.GetAssignmentByJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if got.CandidateID.String() != a.CandidateID.String() || !got.ManualOverride {
		t.Error("stored assignment is not the first writer's")
	}
}

func TestPolicyRoundTrip(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	p := &policy.Policy{
		Entity:    handoff.NewEntity(),
		Category:  "hvac",
		SLA:       10 * time.Minute,
		Steps:     []int{2, 4, 8},
		MaxOffers: 12,
	}
	if err := st.PutPolicy(ctx, p); err != nil {
		t.Fatalf("put policy: %v", err)
	}

	got, err := st.GetPolicy(ctx, "hvac")
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if got.SLA != p.SLA || got.MaxOffers != p.MaxOffers {
		t.Errorf("got %+v, want stored policy back", got)
	}
	if len(got.Steps) != 3 || got.Steps[2] != 8 {
		t.Errorf("steps = %v, want %v", got.Steps, p.Steps)
	}

	// Upsert replaces in place.
	p.MaxOffers = 20
	if err = st.PutPolicy(ctx, p); err != nil {
		t.Fatalf("upsert policy: %v", err)
	}
	got, err = st.GetPolicy(ctx, "hvac")
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if got.MaxOffers != 20 {
		t.Errorf("max offers after upsert = %d, want 20", got.MaxOffers)
	}

	_, err = st.GetPolicy(ctx, "unknown")
	if !errors.Is(err, handoff.ErrPolicyNotFound) {
		t.Errorf("missing policy: err = %v, want ErrPolicyNotFound", err)
	}
}
