package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

func TestStringNilOrEmpty(t *testing.T) {
	tests := []struct {
		name     string
		input    *string
		expected bool
	}{
		{
			name:     "nil pointer",
			input:    nil,
			expected: true,
		},
		{
			name:     "empty string",
			input:    StringPtr(""),
			expected: true,
		},
		{
			name:     "non-empty string",
			input:    StringPtr("SSO_1"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StringNilOrEmpty(tt.input))
		})
	}
}

func TestEqualPointers(t *testing.T) {
	assert.True(t, EqualStringPtr(nil, nil))
	assert.False(t, EqualStringPtr(nil, StringPtr("X")))
	assert.True(t, EqualStringPtr(StringPtr("X"), StringPtr("X")))
	assert.False(t, EqualStringPtr(StringPtr("X"), StringPtr("Y")))

	assert.True(t, EqualFloat64Ptr(nil, nil))
	assert.False(t, EqualFloat64Ptr(Float64Ptr(1), nil))
	assert.True(t, EqualFloat64Ptr(Float64Ptr(60000.5), Float64Ptr(60000.5)))
}

func TestJSONMap_NilIsNull(t *testing.T) {
	j, err := MarshalJSONMap(nil)
	require.NoError(t, err)
	assert.Nil(t, j)

	m, err := UnmarshalJSONMap(j)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestJSONMap_KeepsIntegers(t *testing.T) {
	in := map[string]any{
		"pixelFlagsBad": int64(9007199254740993),
		"trailLength":   12.5,
		"nested": map[string]any{
			"count": int64(3),
			"edges": []any{int64(1), 2.25},
		},
		"saturated": true,
	}

	j, err := MarshalJSONMap(in)
	require.NoError(t, err)

	out, err := UnmarshalJSONMap(j)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// A float without a fractional part is stored as a JSON integer and read back as int64
func TestJSONMap_IntegralFloatDecodesAsInteger(t *testing.T) {
	j, err := MarshalJSONMap(map[string]any{"trailFlux": 12.0})
	require.NoError(t, err)

	out, err := UnmarshalJSONMap(j)
	require.NoError(t, err)
	assert.Equal(t, int64(12), out["trailFlux"])
}

func TestAlertMapping_Lossless(t *testing.T) {
	tests := []struct {
		name  string
		alert domain.Alert
	}{
		{
			name: "fully populated",
			alert: domain.Alert{
				AlertID:                11,
				DetectionID:            22,
				ObjectID:               Int64Ptr(33),
				RA:                     359.5,
				Dec:                    -45.25,
				MJD:                    60123.456,
				FilterBand:             domain.FilterBandZ,
				Flux:                   Float64Ptr(-12.5),
				FluxError:              Float64Ptr(2.5),
				SNR:                    Float64Ptr(5),
				ExtendednessMedian:     Float64Ptr(0.5),
				ExtendednessMin:        Float64Ptr(0.25),
				ExtendednessMax:        Float64Ptr(0.75),
				HasAssociatedObject:    true,
				AssociatedObjectID:     StringPtr("SSO_000001"),
				AssociationRetimestamp: Float64Ptr(60120.5),
				IsReassociation:        true,
				ReassociationReason:    domain.ReassociationChangedAssociation,
				TrailData:              map[string]any{"trailLength": 12.5, "trailPixels": int64(48)},
				PixelFlags:             map[string]any{"pixelFlagsCr": true, "pixelFlagsBits": int64(1 << 40)},
				IngestedAt:             time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "only required fields",
			alert: domain.Alert{
				AlertID:     1,
				DetectionID: 2,
				RA:          0,
				Dec:         90,
				MJD:         1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := AlertToSchema(&tt.alert)
			require.NoError(t, err)

			back, err := AlertFromSchema(row)
			require.NoError(t, err)
			assert.Equal(t, tt.alert, *back)
		})
	}
}

func TestProcessingResultMapping(t *testing.T) {
	result := &domain.ProcessingResult{
		PassID:           "01HPASS",
		ProcessorName:    "example",
		ProcessorVersion: "1.0.0",
		Summary:          "nothing to report",
		Status:           domain.ResultStatusSuccess,
		ProcessedAt:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	row, err := ProcessingResultToSchema(result)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(row.Records))

	back, err := ProcessingResultFromSchema(row)
	require.NoError(t, err)
	assert.Empty(t, back.Records)
	assert.Equal(t, "example", back.ProcessorName)
	assert.Equal(t, domain.ResultStatusSuccess, back.Status)

	result.Records = []map[string]any{{"alert_id": int64(9007199254740993), "snr": 7.5}}
	row, err = ProcessingResultToSchema(result)
	require.NoError(t, err)
	back, err = ProcessingResultFromSchema(row)
	require.NoError(t, err)
	assert.Equal(t, result.Records, back.Records)
}

func TestAssociationStateMapping(t *testing.T) {
	state := &domain.AssociationState{
		DetectionID:               7,
		FirstSeenMJD:              60000,
		LastSeenMJD:               60010,
		CurrentAssociatedObjectID: StringPtr("Y"),
		CurrentRetimestamp:        Float64Ptr(60009),
		ObservationCount:          4,
		UpdatedAt:                 time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, state, AssociationStateFromSchema(AssociationStateToSchema(state)))
}
