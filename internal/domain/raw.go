package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Keys of the flat canonical layout. Sources may emit either this layout or the
// nested broker layout (alertId, diaSource{...}, ssObject{...}).
const (
	KeyAlertID                = "alert_id"
	KeyDetectionID            = "dia_source_id"
	KeyObjectID               = "dia_object_id"
	KeyRA                     = "ra"
	KeyDec                    = "dec"
	KeyMJD                    = "mjd"
	KeyFilterBand             = "filter_name"
	KeyFlux                   = "ps_flux"
	KeyFluxError              = "ps_flux_err"
	KeySNR                    = "snr"
	KeyExtendednessMedian     = "extendedness_median"
	KeyExtendednessMin        = "extendedness_min"
	KeyExtendednessMax        = "extendedness_max"
	KeyHasAssociatedObject    = "has_ss_source"
	KeyAssociatedObjectID     = "ss_object_id"
	KeyAssociationRetimestamp = "ss_object_reassoc_time_mjd"
	KeyTrailData              = "trail_data"
	KeyPixelFlags             = "pixel_flags"
)

// NewAlertFromRaw normalizes a raw mapping into a validated canonical alert
func NewAlertFromRaw(raw RawAlert) (*Alert, error) {
	flat := flattenRaw(raw)

	for _, key := range []string{KeyAlertID, KeyDetectionID, KeyRA, KeyDec, KeyMJD} {
		if isMissing(flat[key]) {
			return nil, NewValidationError(key, "required field missing")
		}
	}

	var a Alert
	var err error

	if a.AlertID, err = requireInt(flat, KeyAlertID); err != nil {
		return nil, err
	}
	if a.DetectionID, err = requireInt(flat, KeyDetectionID); err != nil {
		return nil, err
	}
	if a.ObjectID, err = optionalInt(flat, KeyObjectID); err != nil {
		return nil, err
	}
	if a.RA, err = requireFloat(flat, KeyRA); err != nil {
		return nil, err
	}
	if a.Dec, err = requireFloat(flat, KeyDec); err != nil {
		return nil, err
	}
	if a.MJD, err = requireFloat(flat, KeyMJD); err != nil {
		return nil, err
	}

	if band, ok := flat[KeyFilterBand]; ok && !isMissing(band) {
		s, ok := band.(string)
		if !ok {
			return nil, NewValidationError(KeyFilterBand, "expected string, got %T", band)
		}
		a.FilterBand = NormalizeFilterBand(s)
	}

	floatTargets := []struct {
		key    string
		target **float64
	}{
		{KeyFlux, &a.Flux},
		{KeyFluxError, &a.FluxError},
		{KeySNR, &a.SNR},
		{KeyExtendednessMedian, &a.ExtendednessMedian},
		{KeyExtendednessMin, &a.ExtendednessMin},
		{KeyExtendednessMax, &a.ExtendednessMax},
		{KeyAssociationRetimestamp, &a.AssociationRetimestamp},
	}
	for _, t := range floatTargets {
		if *t.target, err = optionalFloat(flat, t.key); err != nil {
			return nil, err
		}
	}

	// Derive the signal-to-noise ratio when the source did not provide one
	if a.SNR == nil && a.Flux != nil && a.FluxError != nil && *a.FluxError > 0 {
		snr := math.Abs(*a.Flux / *a.FluxError)
		a.SNR = &snr
	}

	if v, ok := flat[KeyAssociatedObjectID]; ok && !isMissing(v) {
		id, err := toString(v)
		if err != nil {
			return nil, NewValidationError(KeyAssociatedObjectID, "%s", err.Error())
		}
		if id != "" {
			a.AssociatedObjectID = &id
		}
	}
	if v, ok := flat[KeyHasAssociatedObject]; ok && !isMissing(v) {
		has, err := toBool(v)
		if err != nil {
			return nil, NewValidationError(KeyHasAssociatedObject, "%s", err.Error())
		}
		a.HasAssociatedObject = has
	} else {
		a.HasAssociatedObject = a.AssociatedObjectID != nil
	}

	if a.TrailData, err = optionalMap(flat, KeyTrailData); err != nil {
		return nil, err
	}
	if a.PixelFlags, err = optionalMap(flat, KeyPixelFlags); err != nil {
		return nil, err
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	return &a, nil
}

// flattenRaw converts the nested broker layout into the flat canonical layout.
// A raw alert already in the flat layout is returned as is.
func flattenRaw(raw RawAlert) RawAlert {
	diaSource, nested := asMap(raw["diaSource"])
	if !nested {
		return raw
	}

	flat := RawAlert{}
	setFirst(flat, KeyAlertID, raw, "alertId", KeyAlertID)
	setFirst(flat, KeyDetectionID, diaSource, "diaSourceId")
	setFirst(flat, KeyObjectID, diaSource, "diaObjectId")
	setFirst(flat, KeyRA, diaSource, "ra")
	setFirst(flat, KeyDec, diaSource, "decl", "dec")
	setFirst(flat, KeyMJD, diaSource, "midPointTai", "midpointMjdTai", "midPointMjdTai")
	setFirst(flat, KeyFilterBand, diaSource, "filterName", "band")
	setFirst(flat, KeyFlux, diaSource, "psFlux")
	setFirst(flat, KeyFluxError, diaSource, "psFluxErr")
	setFirst(flat, KeySNR, diaSource, "snr")
	setFirst(flat, KeyExtendednessMedian, diaSource, "extendednessMedian", "extendedness")
	setFirst(flat, KeyExtendednessMin, diaSource, "extendednessMin")
	setFirst(flat, KeyExtendednessMax, diaSource, "extendednessMax")

	trail := map[string]any{}
	flags := map[string]any{}
	for k, v := range diaSource {
		switch {
		case strings.HasPrefix(k, "trail"):
			trail[k] = v
		case strings.HasPrefix(k, "pixelFlags"):
			flags[k] = v
		}
	}
	if len(trail) > 0 {
		flat[KeyTrailData] = trail
	}
	if len(flags) > 0 {
		flat[KeyPixelFlags] = flags
	}

	if ssObject, ok := asMap(raw["ssObject"]); ok {
		id := ssObject["ssObjectId"]
		if !isMissing(id) && !isZeroNumber(id) {
			flat[KeyAssociatedObjectID] = id
			flat[KeyHasAssociatedObject] = true
		}
		setFirst(flat, KeyAssociationRetimestamp, ssObject, "ssObjectReassocTimeMjdTai", "ssObjectReassocTime")
	}

	return flat
}

func setFirst(dst RawAlert, key string, src map[string]any, names ...string) {
	for _, name := range names {
		if v, ok := src[name]; ok && !isMissing(v) {
			dst[key] = v
			return
		}
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case RawAlert:
		return m, true
	default:
		return nil, false
	}
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

func isZeroNumber(v any) bool {
	f, err := toFloat(v)
	return err == nil && f == 0
}

func requireInt(m RawAlert, key string) (int64, error) {
	v, err := toInt(m[key])
	if err != nil {
		return 0, NewValidationError(key, "%s", err.Error())
	}
	return v, nil
}

func optionalInt(m RawAlert, key string) (*int64, error) {
	raw, ok := m[key]
	if !ok || isMissing(raw) {
		return nil, nil
	}
	v, err := toInt(raw)
	if err != nil {
		return nil, NewValidationError(key, "%s", err.Error())
	}
	return &v, nil
}

func requireFloat(m RawAlert, key string) (float64, error) {
	v, err := toFloat(m[key])
	if err != nil {
		return 0, NewValidationError(key, "%s", err.Error())
	}
	return v, nil
}

func optionalFloat(m RawAlert, key string) (*float64, error) {
	raw, ok := m[key]
	if !ok || isMissing(raw) {
		return nil, nil
	}
	v, err := toFloat(raw)
	if err != nil {
		return nil, NewValidationError(key, "%s", err.Error())
	}
	if math.IsNaN(v) {
		// NaN is how several brokers encode a missing measurement
		return nil, nil
	}
	return &v, nil
}

func optionalMap(m RawAlert, key string) (map[string]any, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, NewValidationError(key, "invalid JSON object: %s", err.Error())
		}
		return out, nil
	default:
		return nil, NewValidationError(key, "expected object, got %T", raw)
	}
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n.String())
		}
		return floatToInt(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	// float64(math.MaxInt64) rounds up to 2^63
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("integer %v out of range", f)
	}
	return int64(f), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected number, got %q", n.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("expected number, got %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("expected boolean, got %q", b)
		}
		return parsed, nil
	default:
		f, err := toFloat(v)
		if err != nil {
			return false, fmt.Errorf("expected boolean, got %T", v)
		}
		return f != 0, nil
	}
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), nil
	case json.Number:
		return s.String(), nil
	case int, int32, int64, uint32, uint64:
		return fmt.Sprintf("%d", s), nil
	case float64:
		if s == math.Trunc(s) {
			return strconv.FormatFloat(s, 'f', 0, 64), nil
		}
		return "", fmt.Errorf("expected identifier, got %v", s)
	default:
		return "", fmt.Errorf("expected identifier, got %T", v)
	}
}
