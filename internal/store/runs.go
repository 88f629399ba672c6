package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
	"github.com/feral-file/ff-alert-indexer/internal/types"
)

// RecordRun inserts a new ingestion run
func (s *sqlStore) RecordRun(ctx context.Context, run *domain.IngestionRun) error {
	started := time.Now()
	row, err := types.IngestionRunToSchema(run)
	if err != nil {
		return fmt.Errorf("failed to map ingestion run: %w", err)
	}

	err = s.withWriteLock(func() error {
		return classifyError(s.db.WithContext(ctx).Create(row).Error)
	})
	s.observe("record_run", started, err)
	if err != nil {
		return fmt.Errorf("failed to record ingestion run: %w", err)
	}

	return nil
}

// FinalizeRun stores the final counters and status of an ingestion run
func (s *sqlStore) FinalizeRun(ctx context.Context, run *domain.IngestionRun) error {
	started := time.Now()
	row, err := types.IngestionRunToSchema(run)
	if err != nil {
		return fmt.Errorf("failed to map ingestion run: %w", err)
	}

	var affected int64
	err = s.withWriteLock(func() error {
		res := s.db.WithContext(ctx).
			Model(&schema.IngestionRun{}).
			Where("run_id = ?", row.RunID).
			Updates(map[string]any{
				"completed_at":            row.CompletedAt,
				"status":                  row.Status,
				"alerts_fetched":          row.AlertsFetched,
				"alerts_ingested":         row.AlertsIngested,
				"alerts_rejected":         row.AlertsRejected,
				"duplicates":              row.Duplicates,
				"new_sources":             row.NewSources,
				"reassociations_detected": row.ReassociationsDetected,
				"batches_written":         row.BatchesWritten,
				"error_message":           row.ErrorMessage,
				"metadata":                row.Metadata,
			})
		affected = res.RowsAffected
		return classifyError(res.Error)
	})
	if err == nil && affected == 0 {
		err = fmt.Errorf("%w: ingestion run %s", domain.ErrNotFound, row.RunID)
	}
	s.observe("finalize_run", started, err)
	if err != nil {
		return fmt.Errorf("failed to finalize ingestion run: %w", err)
	}

	return nil
}

// GetRun retrieves an ingestion run by ID
func (s *sqlStore) GetRun(ctx context.Context, runID string) (*domain.IngestionRun, error) {
	started := time.Now()
	var row schema.IngestionRun
	query := func(db *gorm.DB) error {
		return db.WithContext(ctx).Where("run_id = ?", runID).First(&row).Error
	}

	err := query(s.reader())
	if errors.Is(err, gorm.ErrRecordNotFound) && hasDBResolver(s.db) {
		// Replica can lag behind primary; retry on primary before returning not found.
		err = query(s.primary())
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = fmt.Errorf("%w: ingestion run %s", domain.ErrNotFound, runID)
	}
	err = classifyError(err)
	s.observe("get_run", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion run: %w", err)
	}

	return types.IngestionRunFromSchema(&row)
}

// ListRuns lists the most recent ingestion runs, newest first
func (s *sqlStore) ListRuns(ctx context.Context, limit int) ([]*domain.IngestionRun, error) {
	started := time.Now()
	if limit <= 0 {
		limit = 20
	}

	var rows []schema.IngestionRun
	err := classifyError(s.reader().WithContext(ctx).
		Order("started_at DESC").
		Order("run_id DESC").
		Limit(limit).
		Find(&rows).Error)
	s.observe("list_runs", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion runs: %w", err)
	}

	runs := make([]*domain.IngestionRun, 0, len(rows))
	for i := range rows {
		run, err := types.IngestionRunFromSchema(&rows[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, nil
}
