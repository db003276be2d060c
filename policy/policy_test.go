package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/handoff"
	"github.com/xraph/handoff/policy"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := policy.Policy{SLA: 5 * time.Minute, Steps: []int{1, 2, 5}, MaxOffers: 8}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid policy rejected: %v", err)
	}

	tests := []struct {
		name string
		p    policy.Policy
	}{
		{"zero sla", policy.Policy{Steps: []int{1}, MaxOffers: 8}},
		{"empty steps", policy.Policy{SLA: time.Minute, MaxOffers: 8}},
		{"zero step size", policy.Policy{SLA: time.Minute, Steps: []int{1, 0}, MaxOffers: 8}},
		{"zero max offers", policy.Policy{SLA: time.Minute, Steps: []int{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.p.Validate(); err == nil {
				t.Error("invalid policy accepted")
			}
		})
	}
}

func TestWaveSizeRepeatsLastEntry(t *testing.T) {
	t.Parallel()

	p := policy.Policy{Steps: []int{1, 2, 5}}

	tests := []struct {
		step int
		want int
	}{
		{0, 1}, {1, 2}, {2, 5}, {3, 5}, {10, 5},
	}
	for _, tt := range tests {
		if got := p.WaveSize(tt.step); got != tt.want {
			t.Errorf("WaveSize(%d) = %d, want %d", tt.step, got, tt.want)
		}
	}
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	if err := policy.Default().Validate(); err != nil {
		t.Errorf("default policy invalid: %v", err)
	}
}

// fakeStore returns canned policies per category.
type fakeStore struct {
	policies map[string]*policy.Policy
	err      error
}

func (f *fakeStore) PutPolicy(_ context.Context, p *policy.Policy) error {
	f.policies[p.Category] = p
	return nil
}

func (f *fakeStore) GetPolicy(_ context.Context, category string) (*policy.Policy, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.policies[category]
	if !ok {
		return nil, handoff.ErrPolicyNotFound
	}
	return p, nil
}

func TestResolveCategoryScope(t *testing.T) {
	t.Parallel()

	custom := &policy.Policy{Category: "hvac", SLA: 10 * time.Minute, Steps: []int{2, 4}, MaxOffers: 6}
	r := policy.NewResolver(&fakeStore{policies: map[string]*policy.Policy{"hvac": custom}}, nil)

	got := r.Resolve(context.Background(), "hvac")
	if got.SLA != custom.SLA || got.MaxOffers != custom.MaxOffers {
		t.Errorf("resolved %+v, want the category policy", got)
	}
}

func TestResolveFallsBackToDefaultScope(t *testing.T) {
	t.Parallel()

	def := &policy.Policy{SLA: 3 * time.Minute, Steps: []int{1, 3}, MaxOffers: 4}
	r := policy.NewResolver(&fakeStore{policies: map[string]*policy.Policy{"": def}}, nil)

	got := r.Resolve(context.Background(), "plumbing")
	if got.SLA != def.SLA {
		t.Errorf("resolved SLA %v, want default-scope %v", got.SLA, def.SLA)
	}
}

func TestResolveFallsBackToHardDefaults(t *testing.T) {
	t.Parallel()

	want := policy.Default()

	t.Run("no entries", func(t *testing.T) {
		t.Parallel()
		r := policy.NewResolver(&fakeStore{policies: map[string]*policy.Policy{}}, nil)
		if got := r.Resolve(context.Background(), "plumbing"); got.SLA != want.SLA {
			t.Errorf("resolved SLA %v, want hard default %v", got.SLA, want.SLA)
		}
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		r := policy.NewResolver(&fakeStore{err: context.DeadlineExceeded}, nil)
		if got := r.Resolve(context.Background(), "plumbing"); got.SLA != want.SLA {
			t.Errorf("resolved SLA %v, want hard default %v", got.SLA, want.SLA)
		}
	})

	t.Run("invalid stored policy", func(t *testing.T) {
		t.Parallel()
		bad := &policy.Policy{Category: "hvac"} // zero SLA
		r := policy.NewResolver(&fakeStore{policies: map[string]*policy.Policy{"hvac": bad}}, nil)
		if got := r.Resolve(context.Background(), "hvac"); got.SLA != want.SLA {
			t.Errorf("resolved SLA %v, want hard default %v", got.SLA, want.SLA)
		}
	})

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()
		r := policy.NewResolver(nil, nil)
		if got := r.Resolve(context.Background(), "plumbing"); got.SLA != want.SLA {
			t.Errorf("resolved SLA %v, want hard default %v", got.SLA, want.SLA)
		}
	})
}
