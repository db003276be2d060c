// Package store defines the aggregate persistence interface. Each subsystem
// (job, offer, assignment, policy) defines its own store interface; the
// composite Store composes them all. Backends: Postgres, SQLite, and Memory.
package store

import (
	"context"

	"github.com/xraph/handoff/assignment"
	"github.com/xraph/handoff/job"
	"github.com/xraph/handoff/offer"
	"github.com/xraph/handoff/policy"
)

// Store is the aggregate persistence interface. Each subsystem store is a
// composable interface; a single backend implements all of them.
type Store interface {
	job.Store
	offer.Store
	assignment.Store
	policy.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
