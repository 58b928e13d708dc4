package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors shared by every store implementation.
var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a conditional insert lost to an existing row.
	ErrDuplicate = errors.New("record already exists")
	// ErrAttemptNotOpen is returned when an attempt could not be moved to
	// completed because it already was.
	ErrAttemptNotOpen = errors.New("attempt is not in progress")
	// ErrInvalidReference is returned when a foreign key (subject, topic, test) does not exist.
	ErrInvalidReference = errors.New("referenced record does not exist")
	// ErrMarksBudget is returned when a question would push a test past its total marks.
	ErrMarksBudget = errors.New("question marks exceed the test's total marks")
)

const pgForeignKeyViolation = "23503"

// mapErr converts driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrInvalidReference
	}
	return err
}
