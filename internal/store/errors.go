package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

// classifyError maps driver errors onto the store failure taxonomy.
// Errors that already carry a taxonomy sentinel, and context errors, are returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		domain.ErrStoreUnavailable,
		domain.ErrConstraintViolation,
		domain.ErrSchema,
		domain.ErrNotFound,
		domain.ErrReadOnlyQuery,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return fmt.Errorf("%w: %w", domain.ErrConstraintViolation, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr, sqlite3.ErrCantOpen,
			sqlite3.ErrFull, sqlite3.ErrProtocol, sqlite3.ErrNomem, sqlite3.ErrReadonly:
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		case sqlite3.ErrConstraint:
			return fmt.Errorf("%w: %w", domain.ErrConstraintViolation, err)
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return fmt.Errorf("%w: %w", domain.ErrSchema, err)
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	return err
}

// classifySQLState maps PostgreSQL SQLSTATE classes onto the taxonomy:
//   - 08xxx connection exception, 53xxx insufficient resources, 57Pxx operator intervention,
//     40001 serialization failure and 40P01 deadlock: store unavailable
//   - 23xxx integrity constraint violation: constraint violation
func classifySQLState(code string, err error) error {
	switch {
	case strings.HasPrefix(code, "08"),
		strings.HasPrefix(code, "53"),
		strings.HasPrefix(code, "57P"),
		code == "40001",
		code == "40P01":
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	case strings.HasPrefix(code, "23"):
		return fmt.Errorf("%w: %w", domain.ErrConstraintViolation, err)
	}
	return err
}

// errorType returns the metric label of a classified error
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, domain.ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, domain.ErrSchema):
		return "schema"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrReadOnlyQuery):
		return "read_only_query"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
