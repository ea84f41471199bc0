package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// ErrUnavailable marks failures to reach the database at all, as opposed to
// failures of a particular statement.
var ErrUnavailable = errors.New("database unavailable")

// MapError translates driver errors into domain errors:
// sql.ErrNoRows becomes notFoundErr, a unique violation becomes duplicateErr,
// and connection failures wrap ErrUnavailable. Other errors pass through.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return duplicateErr
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return err
}
