package store

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-alert-indexer/internal/metrics"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

type sqlStore struct {
	db      *gorm.DB
	dialect string
	metrics *metrics.StoreMetrics

	// writeMu admits one write transaction at a time
	writeMu sync.Mutex
}

// Option configures a store
type Option func(*sqlStore)

// WithMetrics records operation metrics on m
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(s *sqlStore) {
		s.metrics = m
	}
}

func hasDBResolver(db *gorm.DB) bool {
	return db != nil && db.Callback().Query().Get("gorm:db_resolver") != nil
}

// NewSQLStore creates a store over a SQLite or PostgreSQL gorm connection
func NewSQLStore(db *gorm.DB, opts ...Option) Store {
	s := &sqlStore{
		db:      db,
		dialect: db.Dialector.Name(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying connections
func (s *sqlStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// reader returns the connection used for read-only statements: the replica when one is registered
func (s *sqlStore) reader() *gorm.DB {
	if hasDBResolver(s.db) {
		return s.db.Clauses(dbresolver.Read)
	}
	return s.db
}

// primary returns the connection used for reads that must see the latest committed write
func (s *sqlStore) primary() *gorm.DB {
	if hasDBResolver(s.db) {
		return s.db.Clauses(dbresolver.Write)
	}
	return s.db
}

// withWriteLock runs fn while holding the store write lock
func (s *sqlStore) withWriteLock(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}

// transaction runs fn in one write transaction under the store write lock
func (s *sqlStore) transaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return s.withWriteLock(func() error {
		return classifyError(db.Transaction(fn))
	})
}

func (s *sqlStore) observe(operation string, started time.Time, err error) {
	s.metrics.ObserveOperation(operation, started, errorType(err))
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns <= 0 {
		maxOpenConns = 20
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// calculateSafeBatchSize computes the largest insert batch that stays under the
// bound-parameter limit of the dialect.
//
// PostgreSQL's extended protocol accepts at most 65535 parameters per statement and
// SQLite (since 3.32) at most 32766. Every inserted record consumes one parameter per
// column, and a fixed headroom is kept for ON CONFLICT and RETURNING clauses.
func calculateSafeBatchSize(dialect string, totalRecords int, fieldsPerRecord int) int {
	maxParams := 65535
	if dialect == dialectSQLite {
		maxParams = 32766
	}
	const totalHeadroom = 1000

	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/max(fieldsPerRecord, 1), 1)

	if safeBatchSize > totalRecords {
		return max(totalRecords, 1)
	}

	return safeBatchSize
}
