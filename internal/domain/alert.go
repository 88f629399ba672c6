package domain

import (
	"math"
	"strings"
	"time"
)

// FilterBand is the photometric band an alert was observed in
type FilterBand string

const (
	FilterBandU FilterBand = "u"
	FilterBandG FilterBand = "g"
	FilterBandR FilterBand = "r"
	FilterBandI FilterBand = "i"
	FilterBandZ FilterBand = "z"
	FilterBandY FilterBand = "y"
)

// FilterBands lists every accepted band in wavelength order
var FilterBands = []FilterBand{FilterBandU, FilterBandG, FilterBandR, FilterBandI, FilterBandZ, FilterBandY}

// IsValidFilterBand checks if a band is one of the accepted bands
func IsValidFilterBand(band FilterBand) bool {
	for _, b := range FilterBands {
		if b == band {
			return true
		}
	}
	return false
}

// NormalizeFilterBand lower-cases and trims a band name
func NormalizeFilterBand(s string) FilterBand {
	return FilterBand(strings.ToLower(strings.TrimSpace(s)))
}

// RawAlert is a heterogeneous mapping produced by an alert source
type RawAlert map[string]any

// Alert is the canonical, validated representation of one detection
type Alert struct {
	AlertID     int64
	DetectionID int64
	ObjectID    *int64

	RA  float64
	Dec float64
	MJD float64

	FilterBand FilterBand // empty when the source did not report a band
	Flux       *float64
	FluxError  *float64
	SNR        *float64

	ExtendednessMedian *float64
	ExtendednessMin    *float64
	ExtendednessMax    *float64

	HasAssociatedObject    bool
	AssociatedObjectID     *string
	AssociationRetimestamp *float64

	IsReassociation     bool
	ReassociationReason ReassociationReason

	TrailData  map[string]any
	PixelFlags map[string]any

	// IngestedAt is assigned by the store on insert
	IngestedAt time.Time
}

// Validate checks the numeric ranges and cross-field invariants of an alert.
// Checks run in a fixed order and the first failure is returned.
func (a *Alert) Validate() error {
	if a.AlertID == 0 {
		return NewValidationError("alert_id", "required field missing")
	}
	if a.DetectionID == 0 {
		return NewValidationError("dia_source_id", "required field missing")
	}

	if math.IsNaN(a.RA) || a.RA < 0 || a.RA >= 360 {
		return NewValidationError("ra", "%v outside [0, 360)", a.RA)
	}
	if math.IsNaN(a.Dec) || a.Dec < -90 || a.Dec > 90 {
		return NewValidationError("dec", "%v outside [-90, 90]", a.Dec)
	}

	if err := a.validateExtendedness(); err != nil {
		return err
	}

	if a.HasAssociatedObject && (a.AssociatedObjectID == nil || *a.AssociatedObjectID == "") {
		return NewValidationError("ss_object_id", "required when has_ss_source is set")
	}
	if !a.HasAssociatedObject && a.AssociatedObjectID != nil {
		return NewValidationError("ss_object_id", "present without has_ss_source")
	}

	if !isFinite(a.MJD) || a.MJD <= 0 {
		return NewValidationError("mjd", "must be a positive modified julian date, got %v", a.MJD)
	}
	if a.FilterBand != "" && !IsValidFilterBand(a.FilterBand) {
		return NewValidationError("filter_name", "unknown band %q", a.FilterBand)
	}
	if a.SNR != nil && (!isFinite(*a.SNR) || *a.SNR < 0) {
		return NewValidationError("snr", "must be >= 0, got %v", *a.SNR)
	}
	if a.FluxError != nil && (!isFinite(*a.FluxError) || *a.FluxError < 0) {
		return NewValidationError("ps_flux_err", "must be >= 0, got %v", *a.FluxError)
	}

	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (a *Alert) validateExtendedness() error {
	fields := []struct {
		name  string
		value *float64
	}{
		{"extendedness_min", a.ExtendednessMin},
		{"extendedness_median", a.ExtendednessMedian},
		{"extendedness_max", a.ExtendednessMax},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if math.IsNaN(*f.value) || *f.value < 0 || *f.value > 1 {
			return NewValidationError(f.name, "%v outside [0, 1]", *f.value)
		}
	}

	// Ordering is only checked between the values that are present
	var prev *float64
	prevName := ""
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if prev != nil && *f.value < *prev {
			return NewValidationError(f.name, "must be >= %s (%v < %v)", prevName, *f.value, *prev)
		}
		prev = f.value
		prevName = f.name
	}

	return nil
}

// IsPointSource reports whether the median extendedness marks a point-like source
func (a *Alert) IsPointSource() bool {
	return a.ExtendednessMedian != nil && *a.ExtendednessMedian < POINT_SOURCE_MAX_EXTENDEDNESS
}

// IsExtendedSource reports whether the median extendedness marks an extended source
func (a *Alert) IsExtendedSource() bool {
	return a.ExtendednessMedian != nil && *a.ExtendednessMedian > EXTENDED_SOURCE_MIN_EXTENDEDNESS
}
