package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRaw() RawAlert {
	return RawAlert{
		"alert_id":            int64(1001),
		"dia_source_id":       int64(2001),
		"dia_object_id":       int64(3001),
		"ra":                  150.25,
		"dec":                 -12.5,
		"mjd":                 60200.5,
		"filter_name":         "R",
		"ps_flux":             1200.0,
		"ps_flux_err":         12.0,
		"extendedness_min":    0.1,
		"extendedness_median": 0.4,
		"extendedness_max":    0.6,
	}
}

func TestNewAlertFromRaw_Valid(t *testing.T) {
	alert, err := NewAlertFromRaw(validRaw())
	require.NoError(t, err)

	assert.Equal(t, int64(1001), alert.AlertID)
	assert.Equal(t, int64(2001), alert.DetectionID)
	require.NotNil(t, alert.ObjectID)
	assert.Equal(t, int64(3001), *alert.ObjectID)
	assert.Equal(t, FilterBandR, alert.FilterBand)
	require.NotNil(t, alert.SNR)
	assert.InDelta(t, 100.0, *alert.SNR, 1e-9)
	assert.False(t, alert.HasAssociatedObject)
	assert.Nil(t, alert.AssociatedObjectID)
}

func TestNewAlertFromRaw_ValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r RawAlert)
		field  string
	}{
		{
			name:   "missing alert id",
			mutate: func(r RawAlert) { delete(r, "alert_id") },
			field:  "alert_id",
		},
		{
			name:   "missing mjd",
			mutate: func(r RawAlert) { delete(r, "mjd") },
			field:  "mjd",
		},
		{
			name:   "ra at upper bound",
			mutate: func(r RawAlert) { r["ra"] = 360.0 },
			field:  "ra",
		},
		{
			name:   "negative ra",
			mutate: func(r RawAlert) { r["ra"] = -0.1 },
			field:  "ra",
		},
		{
			name:   "dec below range",
			mutate: func(r RawAlert) { r["dec"] = -90.5 },
			field:  "dec",
		},
		{
			name: "ra checked before extendedness",
			mutate: func(r RawAlert) {
				r["ra"] = 400.0
				r["extendedness_median"] = 2.0
			},
			field: "ra",
		},
		{
			name:   "extendedness outside unit interval",
			mutate: func(r RawAlert) { r["extendedness_max"] = 1.5 },
			field:  "extendedness_max",
		},
		{
			name:   "median below min",
			mutate: func(r RawAlert) { r["extendedness_median"] = 0.05 },
			field:  "extendedness_median",
		},
		{
			name:   "max below median",
			mutate: func(r RawAlert) { r["extendedness_max"] = 0.3 },
			field:  "extendedness_max",
		},
		{
			name: "association flag without identifier",
			mutate: func(r RawAlert) {
				r["has_ss_source"] = true
			},
			field: "ss_object_id",
		},
		{
			name: "identifier without association flag",
			mutate: func(r RawAlert) {
				r["has_ss_source"] = false
				r["ss_object_id"] = "SSO_1"
			},
			field: "ss_object_id",
		},
		{
			name:   "unknown band",
			mutate: func(r RawAlert) { r["filter_name"] = "k" },
			field:  "filter_name",
		},
		{
			name: "extendedness checked before snr",
			mutate: func(r RawAlert) {
				r["snr"] = -1.0
				r["extendedness_max"] = 1.5
			},
			field: "extendedness_max",
		},
		{
			name: "association checked before band and mjd",
			mutate: func(r RawAlert) {
				r["filter_name"] = "k"
				r["mjd"] = -1.0
				r["has_ss_source"] = true
			},
			field: "ss_object_id",
		},
		{
			name:   "infinite mjd",
			mutate: func(r RawAlert) { r["mjd"] = math.Inf(1) },
			field:  "mjd",
		},
		{
			name:   "infinite snr",
			mutate: func(r RawAlert) { r["snr"] = math.Inf(1) },
			field:  "snr",
		},
		{
			name:   "negative flux error",
			mutate: func(r RawAlert) { r["ps_flux_err"] = -2.0 },
			field:  "ps_flux_err",
		},
		{
			name:   "alert id beyond int64",
			mutate: func(r RawAlert) { r["alert_id"] = 1e19 },
			field:  "alert_id",
		},
		{
			name:   "detection id at two to the 63",
			mutate: func(r RawAlert) { r["dia_source_id"] = float64(math.MaxInt64) },
			field:  "dia_source_id",
		},
		{
			name:   "non numeric ra",
			mutate: func(r RawAlert) { r["ra"] = "north" },
			field:  "ra",
		},
		{
			name:   "fractional alert id",
			mutate: func(r RawAlert) { r["alert_id"] = 10.5 },
			field:  "alert_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(raw)

			alert, err := NewAlertFromRaw(raw)
			assert.Nil(t, alert)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestNewAlertFromRaw_AssociationInferredFromIdentifier(t *testing.T) {
	raw := validRaw()
	raw["ss_object_id"] = int64(987654321)
	raw["ss_object_reassoc_time_mjd"] = 60199.25

	alert, err := NewAlertFromRaw(raw)
	require.NoError(t, err)
	assert.True(t, alert.HasAssociatedObject)
	require.NotNil(t, alert.AssociatedObjectID)
	assert.Equal(t, "987654321", *alert.AssociatedObjectID)
	require.NotNil(t, alert.AssociationRetimestamp)
	assert.Equal(t, 60199.25, *alert.AssociationRetimestamp)
}

func TestNewAlertFromRaw_NestedBrokerLayout(t *testing.T) {
	var raw RawAlert
	payload := `{
		"alertId": 42,
		"diaSource": {
			"diaSourceId": 9007199254740993,
			"diaObjectId": 77,
			"ra": 10.5,
			"decl": 20.25,
			"midPointTai": 60300.125,
			"filterName": "g",
			"psFlux": 50.0,
			"psFluxErr": 5.0,
			"extendednessMedian": 0.5,
			"trailLength": 3.5,
			"pixelFlagsCr": true
		},
		"ssObject": {
			"ssObjectId": 555,
			"ssObjectReassocTimeMjdTai": 60299.5
		}
	}`
	dec := json.NewDecoder(stringReader(payload))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&raw))

	alert, err := NewAlertFromRaw(raw)
	require.NoError(t, err)

	assert.Equal(t, int64(42), alert.AlertID)
	assert.Equal(t, int64(9007199254740993), alert.DetectionID)
	assert.Equal(t, 20.25, alert.Dec)
	assert.Equal(t, 60300.125, alert.MJD)
	assert.Equal(t, FilterBandG, alert.FilterBand)
	assert.True(t, alert.HasAssociatedObject)
	assert.Equal(t, "555", *alert.AssociatedObjectID)
	assert.Equal(t, 60299.5, *alert.AssociationRetimestamp)
	assert.InDelta(t, 10.0, *alert.SNR, 1e-9)
	assert.Contains(t, alert.TrailData, "trailLength")
	assert.Contains(t, alert.PixelFlags, "pixelFlagsCr")
}

func TestNewAlertFromRaw_ZeroSSObjectMeansUnassociated(t *testing.T) {
	raw := RawAlert{
		"alertId": int64(1),
		"diaSource": map[string]any{
			"diaSourceId": int64(2),
			"ra":          1.0,
			"decl":        1.0,
			"midPointTai": 60000.0,
		},
		"ssObject": map[string]any{"ssObjectId": int64(0)},
	}

	alert, err := NewAlertFromRaw(raw)
	require.NoError(t, err)
	assert.False(t, alert.HasAssociatedObject)
	assert.Nil(t, alert.AssociatedObjectID)
}

func TestNewAlertFromRaw_CSVStrings(t *testing.T) {
	raw := RawAlert{
		"alert_id":      "5",
		"dia_source_id": "6",
		"ra":            "359.999",
		"dec":           "90",
		"mjd":           "60000.5",
		"has_ss_source": "true",
		"ss_object_id":  "SSO_000006",
		"snr":           "",
	}

	alert, err := NewAlertFromRaw(raw)
	require.NoError(t, err)
	assert.Equal(t, 359.999, alert.RA)
	assert.Equal(t, 90.0, alert.Dec)
	assert.Nil(t, alert.SNR)
	assert.True(t, alert.HasAssociatedObject)
}

func TestAlert_SourceClassification(t *testing.T) {
	point, extended, mid := 0.1, 0.9, 0.5

	assert.True(t, (&Alert{ExtendednessMedian: &point}).IsPointSource())
	assert.False(t, (&Alert{ExtendednessMedian: &point}).IsExtendedSource())
	assert.True(t, (&Alert{ExtendednessMedian: &extended}).IsExtendedSource())
	assert.False(t, (&Alert{ExtendednessMedian: &mid}).IsPointSource())
	assert.False(t, (&Alert{}).IsPointSource())
}
