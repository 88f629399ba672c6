package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

func TestValidateReadOnlyQuery(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected string
		wantErr  bool
	}{
		{"simple select", "SELECT * FROM alerts_raw", "SELECT * FROM alerts_raw", false},
		{"trailing semicolon stripped", "SELECT 1;  ", "SELECT 1", false},
		{"cte", "WITH r AS (SELECT * FROM alerts_raw) SELECT * FROM r", "WITH r AS (SELECT * FROM alerts_raw) SELECT * FROM r", false},
		{"keyword inside string literal", "SELECT * FROM alerts_raw WHERE ss_object_id = 'DROP; DELETE'", "SELECT * FROM alerts_raw WHERE ss_object_id = 'DROP; DELETE'", false},
		{"column names containing keywords", "SELECT updated_at, created_at FROM saved_filters", "SELECT updated_at, created_at FROM saved_filters", false},
		{"lower case select", "select alert_id from alerts_raw", "select alert_id from alerts_raw", false},
		{"multiple statements", "SELECT 1; SELECT 2", "", true},
		{"delete", "DELETE FROM alerts_raw", "", true},
		{"insert", "INSERT INTO alerts_raw (id) VALUES (1)", "", true},
		{"pragma", "PRAGMA journal_mode=DELETE", "", true},
		{"data modifying cte", "WITH x AS (UPDATE alerts_raw SET ra = 0 RETURNING *) SELECT * FROM x", "", true},
		{"keyword hidden by comment is still rejected", "SELECT 1 /* x */ ; DROP TABLE alerts_raw", "", true},
		{"semicolon in comment", "SELECT 1 -- ; DROP\n", "SELECT 1 -- ; DROP", false},
		{"empty", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateReadOnlyQuery(tt.sql)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrReadOnlyQuery)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCheckQueryArgs(t *testing.T) {
	assert.NoError(t, checkQueryArgs([]any{1, 2.5, true, "SSO_000001", "r"}))
	assert.ErrorIs(t, checkQueryArgs([]any{"1' OR '1'='1"}), domain.ErrReadOnlyQuery)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, domain.ErrStoreUnavailable},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, domain.ErrStoreUnavailable},
		{"sqlite io", sqlite3.Error{Code: sqlite3.ErrIoErr}, domain.ErrStoreUnavailable},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, domain.ErrConstraintViolation},
		{"sqlite not a database", sqlite3.Error{Code: sqlite3.ErrNotADB}, domain.ErrSchema},
		{"pg connection", &pgconn.PgError{Code: "08006"}, domain.ErrStoreUnavailable},
		{"pg too many connections", &pgconn.PgError{Code: "53300"}, domain.ErrStoreUnavailable},
		{"pg admin shutdown", &pgconn.PgError{Code: "57P01"}, domain.ErrStoreUnavailable},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, domain.ErrStoreUnavailable},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domain.ErrConstraintViolation},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, domain.ErrConstraintViolation},
		{"wrapped", fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), domain.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError(tt.err)
			assert.ErrorIs(t, err, tt.target)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("unknown errors pass through", func(t *testing.T) {
		plain := errors.New("boom")
		assert.Equal(t, plain, classifyError(plain))
		assert.Nil(t, classifyError(nil))
	})

	t.Run("already classified errors are not wrapped twice", func(t *testing.T) {
		err := fmt.Errorf("%w: busy", domain.ErrStoreUnavailable)
		assert.Equal(t, err, classifyError(err))
	})
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "", errorType(nil))
	assert.Equal(t, "store_unavailable", errorType(classifyError(sqlite3.Error{Code: sqlite3.ErrBusy})))
	assert.Equal(t, "not_found", errorType(fmt.Errorf("%w: x", domain.ErrNotFound)))
	assert.Equal(t, "other", errorType(errors.New("boom")))
}

func TestCalculateSafeBatchSize(t *testing.T) {
	assert.Equal(t, 10, calculateSafeBatchSize(dialectSQLite, 10, alertInsertFields))
	assert.Equal(t, (32766-1000)/alertInsertFields, calculateSafeBatchSize(dialectSQLite, 100000, alertInsertFields))
	assert.Equal(t, (65535-1000)/alertInsertFields, calculateSafeBatchSize(dialectPostgres, 100000, alertInsertFields))
	assert.Equal(t, 1, calculateSafeBatchSize(dialectSQLite, 0, alertInsertFields))
}

func TestNormalizeConnectionPoolSettings(t *testing.T) {
	maxOpen, maxIdle, lifetime, idle := NormalizeConnectionPoolSettings(0, 0, 0, 0)
	assert.Equal(t, 20, maxOpen)
	assert.Equal(t, 5, maxIdle)
	assert.Equal(t, 5*time.Minute, lifetime)
	assert.Equal(t, 10*time.Minute, idle)

	maxOpen, maxIdle, _, _ = NormalizeConnectionPoolSettings(2, 10, time.Minute, time.Minute)
	assert.Equal(t, 2, maxOpen)
	assert.Equal(t, 2, maxIdle)
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("/tmp/alerts.db")
	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, SQLiteReadOnlyDSN("/tmp/alerts.db"), "mode=ro")
}
