package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Alert represents the alerts_raw table - one row per detection, the first sighting stored wins
type Alert struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// AlertID is the source-unique alert identifier
	AlertID int64 `gorm:"column:alert_id;not null;index:idx_alerts_raw_alert_id"`
	// DetectionID identifies the detected source instance (diaSourceId)
	DetectionID int64 `gorm:"column:dia_source_id;not null;uniqueIndex:idx_alerts_raw_dia_source_id"`
	// ObjectID groups repeated detections of the same physical source (diaObjectId)
	ObjectID *int64 `gorm:"column:dia_object_id;index:idx_alerts_raw_dia_object_id"`
	// RA is the right ascension in degrees
	RA float64 `gorm:"column:ra;not null;index:idx_alerts_raw_coords,priority:1"`
	// Dec is the declination in degrees
	Dec float64 `gorm:"column:dec;not null;index:idx_alerts_raw_coords,priority:2"`
	// MJD is the observation time as a modified Julian date
	MJD float64 `gorm:"column:mjd;not null;index:idx_alerts_raw_mjd"`
	// IngestedAt is the wall-clock time the row was written
	IngestedAt time.Time `gorm:"column:ingested_at;not null;index:idx_alerts_raw_ingested_at"`
	// FilterName is the photometric band
	FilterName *string `gorm:"column:filter_name;type:text"`
	// PSFlux is the point-source flux
	PSFlux *float64 `gorm:"column:ps_flux"`
	// PSFluxErr is the point-source flux error
	PSFluxErr *float64 `gorm:"column:ps_flux_err"`
	// SNR is the provided or derived signal-to-noise ratio
	SNR *float64 `gorm:"column:snr"`
	// ExtendednessMedian is the median extendedness in [0, 1]
	ExtendednessMedian *float64 `gorm:"column:extendedness_median;index:idx_alerts_raw_extendedness"`
	// ExtendednessMin is the minimum extendedness in [0, 1]
	ExtendednessMin *float64 `gorm:"column:extendedness_min"`
	// ExtendednessMax is the maximum extendedness in [0, 1]
	ExtendednessMax *float64 `gorm:"column:extendedness_max"`
	// HasSSSource marks a sighting associated with a solar system object
	HasSSSource bool `gorm:"column:has_ss_source;not null;index:idx_alerts_raw_has_ss_source"`
	// SSObjectID is the associated solar system object
	SSObjectID *string `gorm:"column:ss_object_id;type:text;index:idx_alerts_raw_ss_object_id"`
	// SSObjectReassocTimeMJD is the association retimestamp
	SSObjectReassocTimeMJD *float64 `gorm:"column:ss_object_reassoc_time_mjd"`
	// IsReassociation is set when the tracker classified an association change
	IsReassociation bool `gorm:"column:is_reassociation;not null;index:idx_alerts_raw_reassociation"`
	// ReassociationReason is the tracker classification
	ReassociationReason *string `gorm:"column:reassociation_reason;type:text"`
	// TrailData holds trail* measurements as JSON
	TrailData datatypes.JSON `gorm:"column:trail_data"`
	// PixelFlags holds pixelFlags* values as JSON
	PixelFlags datatypes.JSON `gorm:"column:pixel_flags"`
}

// TableName specifies the table name for the Alert model
func (Alert) TableName() string {
	return "alerts_raw"
}

// AlertRequiredColumns are the columns an existing alerts_raw table must carry to be adopted
var AlertRequiredColumns = []string{
	"alert_id", "dia_source_id", "dia_object_id", "ra", "dec", "mjd", "ingested_at",
	"filter_name", "ps_flux", "ps_flux_err", "snr",
	"extendedness_median", "extendedness_min", "extendedness_max",
	"has_ss_source", "ss_object_id", "ss_object_reassoc_time_mjd",
	"is_reassociation", "reassociation_reason",
}
