package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/cashflow/internal/domain"
)

// PostgreSQL error codes the event store reacts to.
const (
	pgErrUniqueViolation      = "23505"
	pgErrSerializationFailure = "40001"
	pgErrDeadlock             = "40P01"
)

// classifyError maps driver errors onto the domain error kinds. The original
// error stays in the chain so callers can still inspect the PgError.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, domain.ErrConcurrentModification) ||
		errors.Is(err, domain.ErrStorageUnavailable) ||
		errors.Is(err, domain.ErrMalformedHistory) ||
		errors.Is(err, domain.ErrUnknownEventType) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgErrUniqueViolation && pgErr.ConstraintName == streamPositionConstraint:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrConcurrentModification, err)
		case pgErr.Code == pgErrSerializationFailure, pgErr.Code == pgErrDeadlock:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrConcurrentModification, err)
		case isUnavailableClass(pgErr.Code):
			return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
		default:
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	// Anything that is not a server-side error is an I/O failure: refused
	// connections, timeouts, a closed pool.
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

// isUnavailableClass reports connection exceptions (08), insufficient
// resources (53) and operator intervention (57).
func isUnavailableClass(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "08", "53", "57":
		return true
	}
	return false
}
