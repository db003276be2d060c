// Package deadline enforces offer SLA deadlines. Deadlines are data, not
// timers: each offer carries its deadline as a column, and two delivery
// mechanisms feed expirations back into the engine. The Queue arms a
// per-offer entry in a Redis sorted set and claims due entries with
// second-level latency; the Sweeper periodically scans the store for
// overdue pending offers and for dispatching jobs with nothing in flight,
// catching anything the queue missed across restarts. Both paths converge
// on the engine's idempotent deadline handler, so double delivery is
// harmless.
package deadline
