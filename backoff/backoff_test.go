package backoff

import (
	"testing"
	"time"
)

func TestConstant(t *testing.T) {
	t.Parallel()

	s := NewConstant(5 * time.Second)
	for _, attempt := range []int{1, 2, 10} {
		if got := s.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want 5s", attempt, got)
		}
	}
}

func TestExponential(t *testing.T) {
	t.Parallel()

	s := NewExponential(time.Second, time.Minute)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{7, time.Minute}, // 64s capped at 60s
	}

	for _, tt := range tests {
		if got := s.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestFullJitterBounds(t *testing.T) {
	t.Parallel()

	s := NewFullJitter(time.Second, 30*time.Second)

	for attempt := 1; attempt <= 10; attempt++ {
		for range 50 {
			d := s.Delay(attempt)
			if d < 0 || d > 30*time.Second {
				t.Fatalf("Delay(%d) = %v out of [0, 30s]", attempt, d)
			}
		}
	}
}
