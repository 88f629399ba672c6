package store

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// OpenConfig describes how to connect to the database
type OpenConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string
	// DSN is the primary (read-write) connection string
	DSN string
	// ReadDSN is an optional read-only connection string; reads are routed to it through dbresolver
	ReadDSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	Logger gormlogger.Interface
}

// SQLiteDSN builds a SQLite connection string with WAL journaling, a busy timeout and
// immediate write transactions so that concurrent writers queue instead of deadlocking
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON&_txlock=immediate", path)
}

// SQLiteReadOnlyDSN builds a read-only SQLite connection string over the same file
func SQLiteReadOnlyDSN(path string) string {
	return fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
}

func isInMemorySQLite(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Open connects to the configured database and configures its pool
func Open(cfg OpenConfig) (*gorm.DB, error) {
	var dialector, replica gorm.Dialector
	switch cfg.Driver {
	case dialectSQLite, "sqlite3", "":
		dialector = sqlite.Open(cfg.DSN)
		if cfg.ReadDSN != "" {
			replica = sqlite.Open(cfg.ReadDSN)
		}
	case dialectPostgres, "postgresql", "pg":
		dialector = postgres.Open(cfg.DSN)
		if cfg.ReadDSN != "" {
			replica = postgres.Open(cfg.ReadDSN)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormCfg := &gorm.Config{
		Logger:         cfg.Logger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
	if gormCfg.Logger == nil {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", classifyError(err))
	}

	if replica != nil {
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{replica},
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxOpenConns(cfg.MaxOpenConns).
			SetConnMaxLifetime(cfg.ConnMaxLifetime))
		if err != nil {
			return nil, fmt.Errorf("failed to register read replica: %w", err)
		}
	}

	if err := ConfigureConnectionPool(db, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime); err != nil {
		return nil, err
	}

	if db.Dialector.Name() == dialectSQLite && isInMemorySQLite(cfg.DSN) {
		// every connection to an in-memory database sees its own database,
		// so keep exactly one connection alive for the lifetime of the process
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	}

	return db, nil
}
