package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
)

// models lists every table managed by the store
func models() []any {
	return []any{
		&schema.KeyValueStore{},
		&schema.Alert{},
		&schema.AssociationState{},
		&schema.IngestionRun{},
		&schema.ProcessingResult{},
		&schema.SavedFilter{},
		&schema.FilteredAlert{},
	}
}

// Initialize creates tables, indexes and views. It is idempotent, and rejects an
// existing database stamped with an unknown schema version or holding an alerts_raw
// table without the required columns.
func (s *sqlStore) Initialize(ctx context.Context) error {
	started := time.Now()
	err := s.withWriteLock(func() error {
		return s.initialize(ctx)
	})
	s.observe("initialize", started, err)
	return err
}

func (s *sqlStore) initialize(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := s.checkExistingSchema(ctx, db); err != nil {
		return err
	}

	if err := db.AutoMigrate(models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", classifyError(err))
	}

	for _, v := range views(s.dialect) {
		if err := db.Exec(fmt.Sprintf("DROP VIEW IF EXISTS %s", v.name)).Error; err != nil {
			return fmt.Errorf("failed to drop view %s: %w", v.name, classifyError(err))
		}
		if err := db.Exec(fmt.Sprintf("CREATE VIEW %s AS %s", v.name, v.query)).Error; err != nil {
			return fmt.Errorf("failed to create view %s: %w", v.name, classifyError(err))
		}
	}

	if err := s.setKeyValue(db, schema.SchemaVersionKey, schema.CurrentSchemaVersion); err != nil {
		return fmt.Errorf("failed to stamp schema version: %w", err)
	}

	logger.InfoCtx(ctx, "Store schema initialized",
		zap.String("dialect", s.dialect),
		zap.String("schemaVersion", schema.CurrentSchemaVersion))

	return nil
}

func (s *sqlStore) checkExistingSchema(ctx context.Context, db *gorm.DB) error {
	migrator := db.Migrator()

	if migrator.HasTable(&schema.KeyValueStore{}) {
		version, err := s.getKeyValue(ctx, schema.SchemaVersionKey)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		if version != "" {
			if version != schema.CurrentSchemaVersion {
				return fmt.Errorf("%w: schema version %s, expected %s", domain.ErrSchema, version, schema.CurrentSchemaVersion)
			}
			return nil
		}
	}

	if !migrator.HasTable(&schema.Alert{}) {
		return nil
	}

	// An unstamped alerts_raw is adopted only when it carries every required column
	for _, column := range schema.AlertRequiredColumns {
		if !migrator.HasColumn(&schema.Alert{}, column) {
			return fmt.Errorf("%w: existing alerts_raw table lacks column %s", domain.ErrSchema, column)
		}
	}

	return nil
}
