package offer

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	terminal := []Status{StatusAccepted, StatusDeclined, StatusTimeout, StatusCancelled}

	for _, to := range terminal {
		if !CanTransition(StatusPending, to) {
			t.Errorf("pending → %s should be allowed", to)
		}
	}

	// No transition leaves a terminal state, including self-transitions.
	for _, from := range terminal {
		for _, to := range append(terminal, StatusPending) {
			if CanTransition(from, to) {
				t.Errorf("%s → %s should be rejected", from, to)
			}
		}
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusAccepted, true},
		{StatusDeclined, true},
		{StatusTimeout, true},
		{StatusCancelled, true},
		{Status("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()

			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	if !StatusPending.Valid() {
		t.Error("pending should be valid")
	}
	if Status("nope").Valid() {
		t.Error("unknown status should be invalid")
	}
}
