package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
)

func sourceCursorKey(source string) string {
	return fmt.Sprintf("source_cursor:%s", source)
}

// GetSourceCursor retrieves the resume position of a source
func (s *sqlStore) GetSourceCursor(ctx context.Context, source string) (string, error) {
	value, err := s.getKeyValue(ctx, sourceCursorKey(source))
	if err != nil {
		return "", fmt.Errorf("failed to get source cursor: %w", err)
	}
	return value, nil
}

// SetSourceCursor stores the resume position of a source
func (s *sqlStore) SetSourceCursor(ctx context.Context, source string, cursor string) error {
	started := time.Now()
	err := s.withWriteLock(func() error {
		return s.setKeyValue(s.db.WithContext(ctx), sourceCursorKey(source), cursor)
	})
	s.observe("set_source_cursor", started, err)
	if err != nil {
		return fmt.Errorf("failed to set source cursor: %w", err)
	}
	return nil
}

// getKeyValue returns the stored value or an empty string when the key is absent
func (s *sqlStore) getKeyValue(ctx context.Context, key string) (string, error) {
	var kv schema.KeyValueStore
	err := s.primary().WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", classifyError(err)
	}
	return kv.Value, nil
}

func (s *sqlStore) setKeyValue(tx *gorm.DB, key string, value string) error {
	kv := schema.KeyValueStore{
		Key:   key,
		Value: value,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return classifyError(err)
	}
	return nil
}
