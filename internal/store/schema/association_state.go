package schema

import "time"

// AssociationState represents the association_states table - association history per detection.
// Rows are written only by the reassociation tracker.
type AssociationState struct {
	// DetectionID is the detection this state belongs to
	DetectionID int64 `gorm:"column:dia_source_id;primaryKey;autoIncrement:false"`
	// FirstSeenMJD is the earliest sighting time
	FirstSeenMJD float64 `gorm:"column:first_seen_mjd;not null"`
	// LastSeenMJD is the latest sighting time
	LastSeenMJD float64 `gorm:"column:last_seen_mjd;not null;index:idx_association_states_last_seen"`
	// SSObjectID is the currently associated solar system object
	SSObjectID *string `gorm:"column:ss_object_id;type:text;index:idx_association_states_ss_object"`
	// SSObjectReassocTime is the current association retimestamp
	SSObjectReassocTime *float64 `gorm:"column:ss_object_reassoc_time"`
	// ObservationCount is the number of sightings folded into this state
	ObservationCount int64 `gorm:"column:observation_count;not null;default:1"`
	// UpdatedAt is the wall-clock time of the last mutation
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the AssociationState model
func (AssociationState) TableName() string {
	return "association_states"
}
