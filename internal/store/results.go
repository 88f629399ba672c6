package store

import (
	"context"
	"fmt"
	"time"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
	"github.com/feral-file/ff-alert-indexer/internal/types"
)

// RecordProcessingResult appends a processing result and sets its ID
func (s *sqlStore) RecordProcessingResult(ctx context.Context, result *domain.ProcessingResult) error {
	started := time.Now()
	row, err := types.ProcessingResultToSchema(result)
	if err != nil {
		return fmt.Errorf("failed to map processing result: %w", err)
	}
	if row.ProcessedAt.IsZero() {
		row.ProcessedAt = time.Now().UTC()
	}

	err = s.withWriteLock(func() error {
		return classifyError(s.db.WithContext(ctx).Create(row).Error)
	})
	s.observe("record_processing_result", started, err)
	if err != nil {
		return fmt.Errorf("failed to record processing result: %w", err)
	}

	result.ID = row.ID
	result.ProcessedAt = row.ProcessedAt
	return nil
}

// ListProcessingResults lists results newest first, optionally for one processor
func (s *sqlStore) ListProcessingResults(ctx context.Context, processorName string, limit int) ([]*domain.ProcessingResult, error) {
	started := time.Now()
	if limit <= 0 {
		limit = 10
	}

	query := s.reader().WithContext(ctx).Model(&schema.ProcessingResult{})
	if processorName != "" {
		query = query.Where("processor_name = ?", processorName)
	}

	var rows []schema.ProcessingResult
	err := classifyError(query.Order("processed_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error)
	s.observe("list_processing_results", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list processing results: %w", err)
	}

	results := make([]*domain.ProcessingResult, 0, len(rows))
	for i := range rows {
		r, err := types.ProcessingResultFromSchema(&rows[i])
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	return results, nil
}
