package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"outreach_server/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common persistence errors
var (
	ErrNotFound  = domain.ErrProfileNotFound
	ErrDuplicate = errors.New("duplicate entry")
)

const pgUniqueViolation = "23505"

// classify maps driver errors onto persistence errors, keeping the cause.
func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("failed to %s: %w: %s", op, ErrDuplicate, pgErr.Detail)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
