// Package handoff provides a composable offer-dispatch engine for Go.
// It matches service jobs to eligible providers ("candidates"), ranks them,
// and offers the job in escalating time-boxed waves until one candidate
// accepts, capacity is exhausted, or the job is withdrawn.
//
// Handoff is designed as a library, not a service. Import it, configure a
// store, and drive dispatch through the engine:
//
//	eng := engine.New(st, registry,
//	    engine.WithNotifier(pushNotifier),
//	    engine.WithAudit(auditRecorder),
//	)
//	res, err := eng.Dispatch(ctx, jobID)
//
// # Architecture
//
// Handoff follows a composable store pattern where each subsystem (job,
// offer, assignment, policy) defines its own store interface. A single
// backend implements all of them. Backends: Postgres, SQLite, and Memory.
//
// Offer lifecycle is a closed state machine (Pending → Accepted, Declined,
// Timeout, Cancelled) enforced through conditional updates at the storage
// layer, so concurrent accept/decline/deadline races resolve to exactly one
// winner without a lock manager. SLA deadlines are persisted data, driven by
// a periodic sweep or a Redis delayed-task queue, never by in-process timers
// alone.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package handoff
