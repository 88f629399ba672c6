package schema

import (
	"time"

	"gorm.io/datatypes"
)

// IngestionRun represents the ingestion_runs table - one row per pipeline invocation
type IngestionRun struct {
	// RunID is the ULID of the run
	RunID string `gorm:"column:run_id;primaryKey;type:text"`
	// SourceName identifies the alert source
	SourceName string `gorm:"column:source_name;not null;type:text;index:idx_ingestion_runs_source"`
	// StartedAt is when the run was recorded
	StartedAt time.Time `gorm:"column:started_at;not null;index:idx_ingestion_runs_started"`
	// CompletedAt is set when the run is finalized
	CompletedAt *time.Time `gorm:"column:completed_at"`
	// Status is one of running, completed, failed, cancelled
	Status string `gorm:"column:status;not null;type:text;index:idx_ingestion_runs_status"`

	AlertsFetched          int64 `gorm:"column:alerts_fetched;not null;default:0"`
	AlertsIngested         int64 `gorm:"column:alerts_ingested;not null;default:0"`
	AlertsRejected         int64 `gorm:"column:alerts_rejected;not null;default:0"`
	Duplicates             int64 `gorm:"column:duplicates;not null;default:0"`
	NewSources             int64 `gorm:"column:new_sources;not null;default:0"`
	ReassociationsDetected int64 `gorm:"column:reassociations_detected;not null;default:0"`
	BatchesWritten         int64 `gorm:"column:batches_written;not null;default:0"`

	// ErrorMessage carries the failure marker of failed runs
	ErrorMessage *string `gorm:"column:error_message;type:text"`
	// Metadata holds source configuration and run options as JSON
	Metadata datatypes.JSON `gorm:"column:metadata"`
}

// TableName specifies the table name for the IngestionRun model
func (IngestionRun) TableName() string {
	return "ingestion_runs"
}
