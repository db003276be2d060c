package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isDuplicateKey checks if a PostgreSQL error is a unique_violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// stepsToInt32 converts a wave schedule for the int[] column.
func stepsToInt32(steps []int) []int32 {
	out := make([]int32, len(steps))
	for i, s := range steps {
		out[i] = int32(s)
	}
	return out
}

// stepsFromInt32 converts the int[] column back to a wave schedule.
func stepsFromInt32(steps []int32) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = int(s)
	}
	return out
}
