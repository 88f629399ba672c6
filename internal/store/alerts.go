package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
	"github.com/feral-file/ff-alert-indexer/internal/types"
)

// alertInsertFields is the number of bound parameters per inserted alerts_raw row
const alertInsertFields = 22

// WriteBatch persists a batch of alerts in one transaction. A detection is stored
// once: rows whose dia_source_id repeats within the batch or matches a stored row
// are rejected individually, as are invalid rows; every other row commits. On a
// transaction failure nothing is written.
func (s *sqlStore) WriteBatch(ctx context.Context, alerts []*domain.Alert) (*WriteResult, error) {
	started := time.Now()
	result, err := s.writeBatch(ctx, alerts)
	s.observe("write_batch", started, err)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRows(result.Written, len(result.Rejected))
	return result, nil
}

func (s *sqlStore) writeBatch(ctx context.Context, alerts []*domain.Alert) (*WriteResult, error) {
	var rejected []RejectedRow
	reject := func(i int, a *domain.Alert, reason string, err error) {
		rejected = append(rejected, RejectedRow{
			Index:       i,
			AlertID:     a.AlertID,
			DetectionID: a.DetectionID,
			Reason:      reason,
			Err:         err,
		})
	}

	now := time.Now().UTC()
	seen := make(map[int64]struct{}, len(alerts))
	rows := make([]*schema.Alert, 0, len(alerts))
	positions := make([]int, 0, len(alerts))

	for i, a := range alerts {
		if a == nil {
			continue
		}
		if err := a.Validate(); err != nil {
			reject(i, a, RejectReasonInvalid, fmt.Errorf("%w: %w", domain.ErrConstraintViolation, err))
			continue
		}

		if _, dup := seen[a.DetectionID]; dup {
			reject(i, a, RejectReasonDuplicateInBatch, domain.ErrConstraintViolation)
			continue
		}
		seen[a.DetectionID] = struct{}{}

		row, err := types.AlertToSchema(a)
		if err != nil {
			reject(i, a, RejectReasonInvalid, fmt.Errorf("%w: %w", domain.ErrConstraintViolation, err))
			continue
		}
		if row.IngestedAt.IsZero() {
			row.IngestedAt = now
		}
		rows = append(rows, row)
		positions = append(positions, i)
	}

	written := 0
	var stored []RejectedRow
	err := s.transaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		stored = stored[:0]
		existing, err := storedDetections(tx, s.dialect, rows)
		if err != nil {
			return err
		}

		toInsert := make([]*schema.Alert, 0, len(rows))
		for i, row := range rows {
			if _, ok := existing[row.DetectionID]; ok {
				stored = append(stored, RejectedRow{
					Index:       positions[i],
					AlertID:     row.AlertID,
					DetectionID: row.DetectionID,
					Reason:      RejectReasonDuplicate,
					Err:         domain.ErrConstraintViolation,
				})
				continue
			}
			toInsert = append(toInsert, rows[i])
		}
		if len(toInsert) == 0 {
			written = 0
			return nil
		}

		batchSize := calculateSafeBatchSize(s.dialect, len(toInsert), alertInsertFields)
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(toInsert, batchSize)
		if res.Error != nil {
			return fmt.Errorf("failed to insert alerts: %w", res.Error)
		}
		written = int(res.RowsAffected)
		if written != len(toInsert) {
			logger.WarnCtx(ctx, "Conflicting alerts skipped during insert",
				zap.Int("expected", len(toInsert)),
				zap.Int("written", written))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write alert batch: %w", err)
	}

	return &WriteResult{
		Written:  written,
		Rejected: append(rejected, stored...),
	}, nil
}

// storedDetections returns the dia_source_id values of rows that are already stored
func storedDetections(tx *gorm.DB, dialect string, rows []*schema.Alert) (map[int64]struct{}, error) {
	existing := make(map[int64]struct{})
	if len(rows) == 0 {
		return existing, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.DetectionID)
	}

	chunk := calculateSafeBatchSize(dialect, len(ids), 1)
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))

		var found []int64
		err := tx.Model(&schema.Alert{}).
			Where("dia_source_id IN ?", ids[start:end]).
			Pluck("dia_source_id", &found).Error
		if err != nil {
			return nil, fmt.Errorf("failed to look up existing alerts: %w", err)
		}
		for _, id := range found {
			existing[id] = struct{}{}
		}
	}

	return existing, nil
}

// GetAlert retrieves the stored alert of a detection
func (s *sqlStore) GetAlert(ctx context.Context, detectionID int64) (*domain.Alert, error) {
	started := time.Now()
	alert, err := s.getAlert(ctx, detectionID)
	s.observe("get_alert", started, err)
	return alert, err
}

func (s *sqlStore) getAlert(ctx context.Context, detectionID int64) (*domain.Alert, error) {
	var row schema.Alert
	query := func(db *gorm.DB) error {
		return db.WithContext(ctx).
			Where("dia_source_id = ?", detectionID).
			Take(&row).Error
	}

	err := query(s.reader())
	if errors.Is(err, gorm.ErrRecordNotFound) && hasDBResolver(s.db) {
		// Replica can lag behind primary; retry on primary before returning not found.
		err = query(s.primary())
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: alert for detection %d", domain.ErrNotFound, detectionID)
		}
		return nil, fmt.Errorf("failed to get alert: %w", classifyError(err))
	}

	alert, err := types.AlertFromSchema(&row)
	if err != nil {
		return nil, fmt.Errorf("failed to decode alert: %w", err)
	}
	return alert, nil
}

// CopyToFiltered materializes the alerts matching where into alerts_filtered.
// Alerts already materialized for the same config hash are skipped.
func (s *sqlStore) CopyToFiltered(ctx context.Context, configHash, filterName, where string, args ...any) (int64, error) {
	started := time.Now()
	var copied int64
	err := s.transaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if where == "" {
			where = "TRUE"
		}
		stmt := fmt.Sprintf(`INSERT INTO alerts_filtered (raw_alert_id, filter_config_hash, filter_name, filtered_at)
SELECT id, ?, ?, ? FROM alerts_raw WHERE %s
ON CONFLICT (raw_alert_id, filter_config_hash) DO NOTHING`, where)

		bound := append([]any{configHash, filterName, time.Now().UTC()}, args...)
		res := tx.Exec(stmt, bound...)
		if res.Error != nil {
			return fmt.Errorf("failed to materialize filter: %w", res.Error)
		}
		copied = res.RowsAffected
		return nil
	})
	s.observe("copy_to_filtered", started, err)
	if err != nil {
		return 0, err
	}
	return copied, nil
}
