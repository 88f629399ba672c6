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
	"github.com/feral-file/ff-alert-indexer/internal/types"
)

// associationStateFields is the number of bound parameters per association_states row
const associationStateFields = 7

var associationStateUpsert = clause.OnConflict{
	Columns: []clause.Column{{Name: "dia_source_id"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"first_seen_mjd",
		"last_seen_mjd",
		"ss_object_id",
		"ss_object_reassoc_time",
		"observation_count",
		"updated_at",
	}),
}

// GetAssociationState retrieves the state of a detection, nil when it was never seen
func (s *sqlStore) GetAssociationState(ctx context.Context, detectionID int64) (*domain.AssociationState, error) {
	started := time.Now()
	var row schema.AssociationState
	err := s.primary().WithContext(ctx).Where("dia_source_id = ?", detectionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.observe("get_association_state", started, nil)
		return nil, nil
	}
	err = classifyError(err)
	s.observe("get_association_state", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get association state: %w", err)
	}

	return types.AssociationStateFromSchema(&row), nil
}

// GetAssociationStates retrieves the states of many detections keyed by detection ID
func (s *sqlStore) GetAssociationStates(ctx context.Context, detectionIDs []int64) (map[int64]*domain.AssociationState, error) {
	started := time.Now()
	states := make(map[int64]*domain.AssociationState, len(detectionIDs))
	if len(detectionIDs) == 0 {
		return states, nil
	}

	var err error
	chunk := calculateSafeBatchSize(s.dialect, len(detectionIDs), 1)
	for start := 0; start < len(detectionIDs); start += chunk {
		end := min(start+chunk, len(detectionIDs))

		var rows []schema.AssociationState
		if err = s.primary().WithContext(ctx).Where("dia_source_id IN ?", detectionIDs[start:end]).Find(&rows).Error; err != nil {
			err = classifyError(err)
			break
		}
		for i := range rows {
			states[rows[i].DetectionID] = types.AssociationStateFromSchema(&rows[i])
		}
	}
	s.observe("get_association_states", started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get association states: %w", err)
	}

	return states, nil
}

// UpsertAssociationState inserts or replaces the state of a detection
func (s *sqlStore) UpsertAssociationState(ctx context.Context, state *domain.AssociationState) error {
	return s.UpsertAssociationStates(ctx, []*domain.AssociationState{state})
}

// UpsertAssociationStates inserts or replaces many states in one transaction
func (s *sqlStore) UpsertAssociationStates(ctx context.Context, states []*domain.AssociationState) error {
	if len(states) == 0 {
		return nil
	}

	started := time.Now()
	now := time.Now().UTC()
	rows := make([]*schema.AssociationState, 0, len(states))
	for _, state := range states {
		if state == nil {
			continue
		}
		row := types.AssociationStateToSchema(state)
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = now
		}
		if row.ObservationCount <= 0 {
			row.ObservationCount = 1
		}
		rows = append(rows, row)
	}

	err := s.transaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		batchSize := calculateSafeBatchSize(s.dialect, len(rows), associationStateFields)
		return tx.Clauses(associationStateUpsert).CreateInBatches(rows, batchSize).Error
	})
	s.observe("upsert_association_states", started, err)
	if err != nil {
		return fmt.Errorf("failed to upsert association states: %w", err)
	}

	return nil
}

// DeleteStatesLastSeenBefore removes states whose last sighting is older than mjd
func (s *sqlStore) DeleteStatesLastSeenBefore(ctx context.Context, mjd float64) (int64, error) {
	started := time.Now()
	var deleted int64
	err := s.transaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		res := tx.Where("last_seen_mjd < ?", mjd).Delete(&schema.AssociationState{})
		deleted = res.RowsAffected
		return res.Error
	})
	s.observe("delete_association_states", started, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete association states: %w", err)
	}

	return deleted, nil
}
