package candidate

import (
	"testing"
	"time"
)

// mondayAt returns a time on a known Monday at the given clock time.
func mondayAt(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC) // a Monday
}

func TestHoursCovers(t *testing.T) {
	t.Parallel()

	dayShift := Hours{
		time.Monday: {Open: MinuteOfDay(9, 0), Close: MinuteOfDay(17, 0)},
	}
	nightShift := Hours{
		time.Sunday: {Open: MinuteOfDay(22, 0), Close: MinuteOfDay(6, 0)},
	}

	tests := []struct {
		name  string
		hours Hours
		at    time.Time
		want  bool
	}{
		{"empty table is always open", nil, mondayAt(3, 0), true},
		{"inside window", dayShift, mondayAt(12, 0), true},
		{"at open", dayShift, mondayAt(9, 0), true},
		{"at close", dayShift, mondayAt(17, 0), false},
		{"before open", dayShift, mondayAt(8, 59), false},
		{"closed day", dayShift, mondayAt(12, 0).AddDate(0, 0, 1), false},
		{"overnight before midnight", nightShift, mondayAt(23, 0).AddDate(0, 0, -1), true},
		{"overnight after midnight", nightShift, mondayAt(5, 30), true},
		{"overnight closed portion", nightShift, mondayAt(12, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.hours.Covers(tt.at); got != tt.want {
				t.Errorf("Covers(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestOffersCategory(t *testing.T) {
	t.Parallel()

	c := &Candidate{Categories: []string{"plumbing", "heating"}}

	if !c.OffersCategory("plumbing") {
		t.Error("expected plumbing to be offered")
	}
	if c.OffersCategory("roofing") {
		t.Error("did not expect roofing to be offered")
	}
}
