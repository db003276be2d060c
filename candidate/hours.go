package candidate

import "time"

// Window is a daily operating window. Open and Close are minutes since
// midnight in the candidate's local interpretation of the clock; a window
// whose Close is at or before Open spans midnight into the next day.
type Window struct {
	Open  int `json:"open"`
	Close int `json:"close"`
}

// Hours maps a weekday to the candidate's operating window for that day.
// A day with no entry is closed. An empty (or nil) table means the
// candidate has not restricted their hours and is treated as always open.
type Hours map[time.Weekday]Window

// Covers reports whether t falls inside the operating window for t's
// weekday.
func (h Hours) Covers(t time.Time) bool {
	if len(h) == 0 {
		return true
	}

	minute := t.Hour()*60 + t.Minute()

	if w, ok := h[t.Weekday()]; ok {
		if w.Open < w.Close {
			if minute >= w.Open && minute < w.Close {
				return true
			}
		} else {
			// Overnight window, e.g. 22:00–06:00.
			if minute >= w.Open || minute < w.Close {
				return true
			}
		}
	}

	// An overnight window from the previous day may still be open.
	prev := (t.Weekday() + 6) % 7
	if w, ok := h[prev]; ok && w.Close <= w.Open && minute < w.Close {
		return true
	}

	return false
}

// MinuteOfDay converts an "HH:MM"-style hour and minute pair into the
// minutes-since-midnight representation Window uses.
func MinuteOfDay(hour, minute int) int {
	return hour*60 + minute
}
