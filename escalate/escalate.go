// Package escalate implements the escalation planner. The current step is
// always derived from the offers already created — never stored — so the
// planner can be re-run at any time and reach the same conclusion.
package escalate

import (
	"github.com/xraph/handoff/job"
	"github.com/xraph/handoff/offer"
	"github.com/xraph/handoff/policy"
	"github.com/xraph/handoff/rank"
)

// Reason explains a Decision. Wave-terminal and wave-underfilled both
// escalate, but they mean different things ("everyone said no" vs "there
// was no one left to ask") and callers may alert on the latter.
type Reason string

const (
	ReasonNotDispatching    Reason = "job not dispatching"
	ReasonMaxOffersReached  Reason = "max offers reached"
	ReasonAwaitingResponses Reason = "offers still pending"
	ReasonNoOffers          Reason = "no offers yet"
	ReasonWaveTerminal      Reason = "wave fully responded"
	ReasonWaveUnderfilled   Reason = "wave underfilled"
)

// Decision is the planner's answer to "should this job advance a step?".
type Decision struct {
	Escalate bool
	Reason   Reason
	NextStep int
}

// CurrentStep derives the step the next wave belongs to: the smallest step
// s whose cumulative wave-size sum exceeds the number of offers already
// created. Past the end of the schedule the last wave size repeats.
func CurrentStep(pol policy.Policy, offersCreated int) int {
	cumulative := 0
	for s := 0; ; s++ {
		size := pol.WaveSize(s)
		if size <= 0 {
			return s
		}
		cumulative += size
		if cumulative > offersCreated {
			return s
		}
	}
}

// SelectWave picks the next wave: the highest-ranked candidates that have
// not been offered yet, sized by the schedule entry for step. Steps past
// the schedule reuse the last entry.
func SelectWave(ranked []rank.Ranked, pol policy.Policy, step int, alreadyOffered map[string]struct{}) []rank.Ranked {
	size := pol.WaveSize(step)
	if size <= 0 {
		return nil
	}

	wave := make([]rank.Ranked, 0, size)
	for _, r := range ranked {
		if _, offered := alreadyOffered[r.Candidate.ID.String()]; offered {
			continue
		}
		wave = append(wave, r)
		if len(wave) == size {
			break
		}
	}

	return wave
}

// ShouldEscalate decides whether the job should advance to the next wave.
// It escalates only when the job is still dispatching, the offer ceiling
// has not been reached, and every offer created so far is terminal.
func ShouldEscalate(status job.Status, offers []*offer.Offer, pol policy.Policy) Decision {
	if status != job.StatusDispatching {
		return Decision{Reason: ReasonNotDispatching}
	}

	if len(offers) >= pol.MaxOffers {
		return Decision{Reason: ReasonMaxOffersReached}
	}

	for _, o := range offers {
		if !o.Status.Terminal() {
			return Decision{Reason: ReasonAwaitingResponses}
		}
	}

	next := CurrentStep(pol, len(offers))
	if len(offers) == 0 {
		return Decision{Escalate: true, Reason: ReasonNoOffers, NextStep: next}
	}

	// CurrentStep guarantees the cumulative capacity through next-1 is at
	// most len(offers); equality means every planned slot in the completed
	// waves was actually filled.
	reason := ReasonWaveUnderfilled
	if capacityThrough(pol, next-1) == len(offers) {
		reason = ReasonWaveTerminal
	}

	return Decision{Escalate: true, Reason: reason, NextStep: next}
}

// capacityThrough sums wave sizes for steps 0..s inclusive.
func capacityThrough(pol policy.Policy, s int) int {
	total := 0
	for i := 0; i <= s; i++ {
		total += pol.WaveSize(i)
	}
	return total
}

// OfferedSet collects the candidate IDs that already hold an offer for the
// job, in any status. Together with SelectWave this guarantees no candidate
// is ever offered the same job twice.
func OfferedSet(offers []*offer.Offer) map[string]struct{} {
	set := make(map[string]struct{}, len(offers))
	for _, o := range offers {
		set[o.CandidateID.String()] = struct{}{}
	}
	return set
}
