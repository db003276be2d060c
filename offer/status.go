package offer

// Status represents the lifecycle state of an offer.
type Status string

const (
	// StatusPending means the candidate has not yet responded and the SLA
	// deadline has not fired.
	StatusPending Status = "pending"
	// StatusAccepted means the candidate accepted and won the job.
	StatusAccepted Status = "accepted"
	// StatusDeclined means the candidate declined.
	StatusDeclined Status = "declined"
	// StatusTimeout means the SLA deadline elapsed without a response.
	StatusTimeout Status = "timeout"
	// StatusCancelled means a sibling offer was accepted or the job was
	// withdrawn before the candidate responded.
	StatusCancelled Status = "cancelled"
)

// transitions is the closed allowed-transitions table. Pending is the only
// non-terminal state.
var transitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusDeclined, StatusTimeout, StatusCancelled},
	StatusAccepted:  {},
	StatusDeclined:  {},
	StatusTimeout:   {},
	StatusCancelled: {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether the state machine permits from → to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
