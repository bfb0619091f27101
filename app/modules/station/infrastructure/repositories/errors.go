package stationdb

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrNotFound is returned when no ledger row exists for the (run, station) pair.
	ErrNotFound = errors.New("station result not found")
	// ErrRunMissing is returned when a write references a run that does not exist.
	ErrRunMissing = errors.New("run does not exist")
)

const foreignKeyViolation = "23503"

// isForeignKeyViolation recognises SQLSTATE 23503 from either pgdriver or a pgx-backed
// database/sql connection.
func isForeignKeyViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == foreignKeyViolation {
		return true
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == foreignKeyViolation {
		return true
	}
	return false
}
