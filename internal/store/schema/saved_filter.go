package schema

import (
	"time"

	"gorm.io/datatypes"
)

// SavedFilter represents the saved_filters table - named filter configurations
type SavedFilter struct {
	// Name is the unique filter name
	Name string `gorm:"column:name;primaryKey;type:text"`
	// Description is optional free text
	Description string `gorm:"column:description;type:text"`
	// Config is the flat key-value form of the filter as JSON
	Config datatypes.JSON `gorm:"column:config_json;not null"`
	// ConfigHash identifies the predicate set independently of the name
	ConfigHash string    `gorm:"column:config_hash;not null;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the SavedFilter model
func (SavedFilter) TableName() string {
	return "saved_filters"
}

// FilteredAlert represents the alerts_filtered table - materialized filter matches
type FilteredAlert struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// RawAlertID references alerts_raw.id
	RawAlertID uint64 `gorm:"column:raw_alert_id;not null;uniqueIndex:idx_alerts_filtered_raw_config,priority:1;index:idx_alerts_filtered_raw"`
	// FilterConfigHash identifies the filter that selected the alert
	FilterConfigHash string `gorm:"column:filter_config_hash;not null;type:text;uniqueIndex:idx_alerts_filtered_raw_config,priority:2;index:idx_alerts_filtered_config"`
	// FilterName is the saved filter name, empty for ad-hoc filters
	FilterName string    `gorm:"column:filter_name;type:text"`
	FilteredAt time.Time `gorm:"column:filtered_at;not null"`
}

// TableName specifies the table name for the FilteredAlert model
func (FilteredAlert) TableName() string {
	return "alerts_filtered"
}
