// Package sqlite implements store.Store on SQLite via database/sql and the
// pure-Go modernc.org/sqlite driver. Suited to single-node deployments and
// integration tests; the conditional-update semantics match the PostgreSQL
// backend exactly.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xraph/handoff/assignment"
	"github.com/xraph/handoff/job"
	"github.com/xraph/handoff/offer"
	"github.com/xraph/handoff/policy"
)

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ job.Store        = (*Store)(nil)
	_ offer.Store      = (*Store)(nil)
	_ assignment.Store = (*Store)(nil)
	_ policy.Store     = (*Store)(nil)
)

// Store is a SQLite implementation of store.Store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New opens (or creates) a SQLite database at path. Use ":memory:" for an
// ephemeral in-process database. WAL mode and a busy timeout are applied so
// concurrent readers do not starve the single writer.
func New(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("handoff/sqlite: open %s: %w", path, err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	ctx := context.Background()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("handoff/sqlite: ping %s: %w", path, err)
	}
	if _, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("handoff/sqlite: set WAL mode: %w", err)
	}
	if _, err = db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("handoff/sqlite: set busy_timeout: %w", err)
	}
	if _, err = db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("handoff/sqlite: enable foreign keys: %w", err)
	}

	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("handoff/sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *Store) DB() *sql.DB {
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS handoff_jobs (
    id          TEXT PRIMARY KEY,
    category    TEXT NOT NULL,
    lat         REAL,
    lng         REAL,
    status      TEXT NOT NULL DEFAULT 'unassigned',
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_handoff_jobs_status
    ON handoff_jobs (status, created_at);

CREATE TABLE IF NOT EXISTS handoff_offers (
    id             TEXT PRIMARY KEY,
    job_id         TEXT NOT NULL REFERENCES handoff_jobs (id),
    candidate_id   TEXT NOT NULL,
    attempt        INTEGER NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending',
    dispatched_at  TEXT NOT NULL,
    sla_deadline   TEXT NOT NULL,
    responded_at   TEXT,
    decline_reason TEXT NOT NULL DEFAULT '',
    decline_notes  TEXT NOT NULL DEFAULT '',
    score          REAL NOT NULL DEFAULT 0,
    distance_km    REAL NOT NULL DEFAULT 0,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_handoff_offers_job_candidate
    ON handoff_offers (job_id, candidate_id);

CREATE INDEX IF NOT EXISTS idx_handoff_offers_job
    ON handoff_offers (job_id, attempt);

CREATE INDEX IF NOT EXISTS idx_handoff_offers_deadline
    ON handoff_offers (sla_deadline) WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS idx_handoff_offers_candidate
    ON handoff_offers (candidate_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS handoff_assignments (
    id              TEXT PRIMARY KEY,
    job_id          TEXT NOT NULL UNIQUE REFERENCES handoff_jobs (id),
    candidate_id    TEXT NOT NULL,
    assigned_at     TEXT NOT NULL,
    manual_override INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS handoff_policies (
    category    TEXT PRIMARY KEY,
    sla_ns      INTEGER NOT NULL,
    steps       TEXT NOT NULL,
    max_offers  INTEGER NOT NULL,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);
`

// timeFormat is how timestamps are stored. Fixed-width fractional seconds
// keep lexicographic order equal to chronological order, which the deadline
// range queries rely on.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
