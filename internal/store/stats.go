package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
)

// GetStats summarizes the stored data
func (s *sqlStore) GetStats(ctx context.Context) (*Stats, error) {
	started := time.Now()
	stats, err := s.getStats(ctx)
	s.observe("get_stats", started, err)
	return stats, err
}

func (s *sqlStore) getStats(ctx context.Context) (*Stats, error) {
	db := s.reader().WithContext(ctx)
	stats := &Stats{
		TableCounts:  make(map[string]int64),
		RunsByStatus: make(map[string]int64),
	}

	tables := []struct {
		name  string
		model any
	}{
		{"alerts_raw", &schema.Alert{}},
		{"alerts_filtered", &schema.FilteredAlert{}},
		{"association_states", &schema.AssociationState{}},
		{"ingestion_runs", &schema.IngestionRun{}},
		{"processing_results", &schema.ProcessingResult{}},
		{"saved_filters", &schema.SavedFilter{}},
	}
	for _, t := range tables {
		var count int64
		if err := db.Model(t.model).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", t.name, classifyError(err))
		}
		stats.TableCounts[t.name] = count
	}
	stats.TotalAlerts = stats.TableCounts["alerts_raw"]
	stats.TrackedStates = stats.TableCounts["association_states"]
	stats.ProcessingResultsCount = stats.TableCounts["processing_results"]
	stats.SavedFilters = stats.TableCounts["saved_filters"]

	var summary struct {
		UniqueDetections    int64
		UniqueObjects       int64
		AssociatedAlerts    int64
		ReassociationAlerts int64
		MinMJD              *float64
		MaxMJD              *float64
	}
	err := db.Model(&schema.Alert{}).Select(`COUNT(DISTINCT dia_source_id) AS unique_detections,
  COUNT(DISTINCT dia_object_id) AS unique_objects,
  COALESCE(SUM(CASE WHEN has_ss_source = TRUE THEN 1 ELSE 0 END), 0) AS associated_alerts,
  COALESCE(SUM(CASE WHEN is_reassociation = TRUE THEN 1 ELSE 0 END), 0) AS reassociation_alerts,
  MIN(mjd) AS min_mjd,
  MAX(mjd) AS max_mjd`).Scan(&summary).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize alerts: %w", classifyError(err))
	}
	stats.UniqueDetections = summary.UniqueDetections
	stats.UniqueObjects = summary.UniqueObjects
	stats.AssociatedAlerts = summary.AssociatedAlerts
	stats.ReassociationAlerts = summary.ReassociationAlerts
	stats.MinMJD = summary.MinMJD
	stats.MaxMJD = summary.MaxMJD

	var last schema.Alert
	res := db.Select("ingested_at").Order("ingested_at DESC").Limit(1).Find(&last)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to read last ingestion time: %w", classifyError(res.Error))
	}
	if res.RowsAffected > 0 {
		at := last.IngestedAt.UTC()
		stats.LastIngestedAt = &at
	}

	if err := s.countRunsByStatus(db, stats.RunsByStatus); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *sqlStore) countRunsByStatus(db *gorm.DB, into map[string]int64) error {
	var rows []struct {
		Status string
		Count  int64
	}
	err := db.Model(&schema.IngestionRun{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to count runs by status: %w", classifyError(err))
	}
	for _, row := range rows {
		into[row.Status] = row.Count
	}
	return nil
}
