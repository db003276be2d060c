// Package engine implements the dispatch orchestrator: the state machine
// and concurrency-safety core of Handoff.
//
// The engine sits above the subsystem packages (job, offer, assignment,
// policy, match, rank, escalate) and below the application layer. A
// dispatch request runs Matcher → Ranker → Planner, creates one offer per
// selected candidate, and persists everything through the aggregate store.
// Candidate responses and deadline deliveries re-enter through Accept,
// Decline and HandleDeadline; each transition is a conditional update at
// the storage layer, so racing actors resolve to exactly one winner and
// losers observe ErrConflict or an idempotent no-op.
package engine
