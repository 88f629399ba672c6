package schema

import (
	"time"

	"gorm.io/datatypes"
)

// ProcessingResult represents the processing_results table - append-only processor output
type ProcessingResult struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// PassID groups results produced by one runner pass
	PassID string `gorm:"column:pass_id;not null;type:text;index:idx_processing_results_pass"`
	// ProcessorName is the registered processor name
	ProcessorName string `gorm:"column:processor_name;not null;type:text;index:idx_processing_results_processor"`
	// ProcessorVersion is the processor version at run time
	ProcessorVersion string `gorm:"column:processor_version;not null;type:text"`
	// Records is the JSON array of result rows
	Records datatypes.JSON `gorm:"column:records;not null"`
	// Metadata is free-form processor metadata
	Metadata datatypes.JSON `gorm:"column:metadata"`
	// Summary is a human-readable summary
	Summary string `gorm:"column:summary;type:text"`
	// Status is one of success, failed, skipped
	Status string `gorm:"column:status;not null;type:text"`
	// ErrorMessage is set for failed results
	ErrorMessage *string `gorm:"column:error_message;type:text"`
	// WindowStartMJD is the start of the processed window
	WindowStartMJD *float64 `gorm:"column:window_start_mjd"`
	// WindowEndMJD is the end of the processed window
	WindowEndMJD *float64 `gorm:"column:window_end_mjd"`
	// ProcessedAt is when the result was produced
	ProcessedAt time.Time `gorm:"column:processed_at;not null;index:idx_processing_results_time"`
}

// TableName specifies the table name for the ProcessingResult model
func (ProcessingResult) TableName() string {
	return "processing_results"
}
