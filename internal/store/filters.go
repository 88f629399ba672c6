package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
)

// SaveFilter inserts or overwrites a named filter. CreatedAt is kept on overwrite.
func (s *sqlStore) SaveFilter(ctx context.Context, filter *schema.SavedFilter) error {
	started := time.Now()
	now := time.Now().UTC()
	if filter.CreatedAt.IsZero() {
		filter.CreatedAt = now
	}
	filter.UpdatedAt = now

	err := s.withWriteLock(func() error {
		return classifyError(s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "config_json", "config_hash", "updated_at"}),
		}).Create(filter).Error)
	})
	s.observe("save_filter", started, err)
	if err != nil {
		return fmt.Errorf("failed to save filter %s: %w", filter.Name, err)
	}

	return nil
}

// GetFilter retrieves a named filter
func (s *sqlStore) GetFilter(ctx context.Context, name string) (*schema.SavedFilter, error) {
	started := time.Now()
	var filter schema.SavedFilter
	err := s.primary().WithContext(ctx).Where("name = ?", name).First(&filter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = fmt.Errorf("%w: filter %s", domain.ErrNotFound, name)
	}
	err = classifyError(err)
	s.observe("get_filter", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get filter: %w", err)
	}

	return &filter, nil
}

// ListFilters lists saved filters ordered by name
func (s *sqlStore) ListFilters(ctx context.Context) ([]*schema.SavedFilter, error) {
	started := time.Now()
	var filters []*schema.SavedFilter
	err := classifyError(s.reader().WithContext(ctx).Order("name ASC").Find(&filters).Error)
	s.observe("list_filters", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}

	return filters, nil
}

// DeleteFilter removes a named filter, reporting whether it existed
func (s *sqlStore) DeleteFilter(ctx context.Context, name string) (bool, error) {
	started := time.Now()
	var deleted int64
	err := s.withWriteLock(func() error {
		res := s.db.WithContext(ctx).Where("name = ?", name).Delete(&schema.SavedFilter{})
		deleted = res.RowsAffected
		return classifyError(res.Error)
	})
	s.observe("delete_filter", started, err)
	if err != nil {
		return false, fmt.Errorf("failed to delete filter: %w", err)
	}

	return deleted > 0, nil
}
