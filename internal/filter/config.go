package filter

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

// Operator is a comparison operator of an advanced condition
type Operator string

const (
	OpEq        Operator = "="
	OpNe        Operator = "!="
	OpLt        Operator = "<"
	OpLe        Operator = "<="
	OpGt        Operator = ">"
	OpGe        Operator = ">="
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpLike      Operator = "LIKE"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
	OpBetween   Operator = "BETWEEN"
)

var operators = map[Operator]struct{}{
	OpEq: {}, OpNe: {}, OpLt: {}, OpLe: {}, OpGt: {}, OpGe: {},
	OpIn: {}, OpNotIn: {}, OpLike: {}, OpIsNull: {}, OpIsNotNull: {}, OpBetween: {},
}

// Columns are the alerts_raw columns conditions and ordering may reference
var Columns = []string{
	"id", "alert_id", "dia_source_id", "dia_object_id", "ra", "dec", "mjd",
	"filter_name", "ps_flux", "ps_flux_err", "snr",
	"extendedness_median", "extendedness_min", "extendedness_max",
	"has_ss_source", "ss_object_id", "ss_object_reassoc_time_mjd",
	"is_reassociation", "reassociation_reason", "ingested_at",
}

// Condition is an advanced predicate over one whitelisted column
type Condition struct {
	Column   string   `json:"column" yaml:"column"`
	Operator Operator `json:"operator" yaml:"operator"`
	// Value is a scalar, or a list for IN and NOT IN
	Value any `json:"value,omitempty" yaml:"value,omitempty"`
	// Value2 is the upper bound of BETWEEN
	Value2 any `json:"value2,omitempty" yaml:"value2,omitempty"`
}

// Config is a named set of optional predicates over stored alerts.
// Absent predicates are nil, false or empty.
type Config struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	ExtendednessMin *float64 `json:"extendedness_min,omitempty" yaml:"extendedness_min,omitempty"`
	ExtendednessMax *float64 `json:"extendedness_max,omitempty" yaml:"extendedness_max,omitempty"`
	SNRMin          *float64 `json:"snr_min,omitempty" yaml:"snr_min,omitempty"`
	SNRMax          *float64 `json:"snr_max,omitempty" yaml:"snr_max,omitempty"`

	RequireAssociation bool `json:"require_association,omitempty" yaml:"require_association,omitempty"`
	ExcludeAssociation bool `json:"exclude_association,omitempty" yaml:"exclude_association,omitempty"`
	ReassociationsOnly bool `json:"reassociations_only,omitempty" yaml:"reassociations_only,omitempty"`

	Bands []domain.FilterBand `json:"bands,omitempty" yaml:"bands,omitempty"`

	MJDMin *float64 `json:"mjd_min,omitempty" yaml:"mjd_min,omitempty"`
	MJDMax *float64 `json:"mjd_max,omitempty" yaml:"mjd_max,omitempty"`

	// RAMin greater than RAMax selects a box wrapping through ra = 0
	RAMin  *float64 `json:"ra_min,omitempty" yaml:"ra_min,omitempty"`
	RAMax  *float64 `json:"ra_max,omitempty" yaml:"ra_max,omitempty"`
	DecMin *float64 `json:"dec_min,omitempty" yaml:"dec_min,omitempty"`
	DecMax *float64 `json:"dec_max,omitempty" yaml:"dec_max,omitempty"`

	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	OrderBy   string `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	OrderDesc bool   `json:"order_desc,omitempty" yaml:"order_desc,omitempty"`
	Limit     int    `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Flat form keys
const (
	KeyName               = "name"
	KeyDescription        = "description"
	KeyExtendednessMin    = "extendedness_min"
	KeyExtendednessMax    = "extendedness_max"
	KeySNRMin             = "snr_min"
	KeySNRMax             = "snr_max"
	KeyRequireAssociation = "require_association"
	KeyExcludeAssociation = "exclude_association"
	KeyReassociationsOnly = "reassociations_only"
	KeyBands              = "bands"
	KeyMJDMin             = "mjd_min"
	KeyMJDMax             = "mjd_max"
	KeyRAMin              = "ra_min"
	KeyRAMax              = "ra_max"
	KeyDecMin             = "dec_min"
	KeyDecMax             = "dec_max"
	KeyConditions         = "conditions"
	KeyOrderBy            = "order_by"
	KeyOrderDesc          = "order_desc"
	KeyLimit              = "limit"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func isColumn(name string) bool {
	return slices.Contains(Columns, name)
}

// Validate checks the predicates for contradictions and out-of-range bounds
func (c Config) Validate() error {
	if c.RequireAssociation && c.ExcludeAssociation {
		return invalid("require_association and exclude_association are mutually exclusive")
	}

	ranges := []struct {
		name     string
		min, max *float64
		lo, hi   float64
	}{
		{"extendedness", c.ExtendednessMin, c.ExtendednessMax, 0, 1},
		{"dec", c.DecMin, c.DecMax, -90, 90},
	}
	for _, r := range ranges {
		for _, v := range []*float64{r.min, r.max} {
			if v != nil && (*v < r.lo || *v > r.hi) {
				return invalid("%s bound %v outside [%v, %v]", r.name, *v, r.lo, r.hi)
			}
		}
	}
	for _, r := range []struct {
		name     string
		min, max *float64
	}{
		{"extendedness", c.ExtendednessMin, c.ExtendednessMax},
		{"snr", c.SNRMin, c.SNRMax},
		{"mjd", c.MJDMin, c.MJDMax},
		{"dec", c.DecMin, c.DecMax},
	} {
		if r.min != nil && r.max != nil && *r.min > *r.max {
			return invalid("%s minimum %v exceeds maximum %v", r.name, *r.min, *r.max)
		}
	}
	for _, v := range []*float64{c.RAMin, c.RAMax} {
		if v != nil && (*v < 0 || *v >= 360) {
			return invalid("ra bound %v outside [0, 360)", *v)
		}
	}
	for _, band := range c.Bands {
		if !domain.IsValidFilterBand(band) {
			return invalid("unknown band %q", band)
		}
	}
	for i, cond := range c.Conditions {
		if err := cond.validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i+1, err)
		}
	}
	if c.OrderBy != "" && !isColumn(c.OrderBy) {
		return invalid("cannot order by %q", c.OrderBy)
	}
	if c.Limit < 0 {
		return invalid("negative limit %d", c.Limit)
	}

	return nil
}

func (c Condition) validate() error {
	if !isColumn(c.Column) {
		return invalid("unknown column %q", c.Column)
	}
	if _, ok := operators[c.Operator]; !ok {
		return invalid("unsupported operator %q", c.Operator)
	}

	switch c.Operator {
	case OpIsNull, OpIsNotNull:
		return nil
	case OpIn, OpNotIn:
		values, ok := c.Value.([]any)
		if !ok || len(values) == 0 {
			return invalid("%s on %s requires a non-empty list", c.Operator, c.Column)
		}
		for _, v := range values {
			if err := checkValue(v); err != nil {
				return err
			}
		}
		return nil
	case OpBetween:
		if c.Value == nil || c.Value2 == nil {
			return invalid("BETWEEN on %s requires two bounds", c.Column)
		}
		if err := checkValue(c.Value); err != nil {
			return err
		}
		return checkValue(c.Value2)
	default:
		if c.Value == nil {
			return invalid("%s on %s requires a value", c.Operator, c.Column)
		}
		return checkValue(c.Value)
	}
}

// checkValue accepts scalars only and rejects strings that look like SQL injection
func checkValue(v any) error {
	switch value := v.(type) {
	case string:
		if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
			return invalid("value %q matches injection pattern %s", value, fingerprint)
		}
		return nil
	case bool, int, int32, int64, float32, float64, json.Number:
		return nil
	default:
		return invalid("unsupported value type %T", v)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ToMap returns the flat key-value form of the config. Absent predicates are omitted.
func (c Config) ToMap() map[string]string {
	m := map[string]string{}
	if c.Name != "" {
		m[KeyName] = c.Name
	}
	if c.Description != "" {
		m[KeyDescription] = c.Description
	}

	floats := map[string]*float64{
		KeyExtendednessMin: c.ExtendednessMin,
		KeyExtendednessMax: c.ExtendednessMax,
		KeySNRMin:          c.SNRMin,
		KeySNRMax:          c.SNRMax,
		KeyMJDMin:          c.MJDMin,
		KeyMJDMax:          c.MJDMax,
		KeyRAMin:           c.RAMin,
		KeyRAMax:           c.RAMax,
		KeyDecMin:          c.DecMin,
		KeyDecMax:          c.DecMax,
	}
	for key, v := range floats {
		if v != nil {
			m[key] = formatFloat(*v)
		}
	}

	bools := map[string]bool{
		KeyRequireAssociation: c.RequireAssociation,
		KeyExcludeAssociation: c.ExcludeAssociation,
		KeyReassociationsOnly: c.ReassociationsOnly,
		KeyOrderDesc:          c.OrderDesc,
	}
	for key, v := range bools {
		if v {
			m[key] = "true"
		}
	}

	if len(c.Bands) > 0 {
		bands := make([]string, len(c.Bands))
		for i, b := range c.Bands {
			bands[i] = string(b)
		}
		m[KeyBands] = strings.Join(bands, ",")
	}
	if len(c.Conditions) > 0 {
		data, err := json.Marshal(c.Conditions)
		if err == nil {
			m[KeyConditions] = string(data)
		}
	}
	if c.OrderBy != "" {
		m[KeyOrderBy] = c.OrderBy
	}
	if c.Limit > 0 {
		m[KeyLimit] = strconv.Itoa(c.Limit)
	}

	return m
}

// ConfigFromMap parses the flat key-value form. Unknown keys and malformed
// values fail with domain.ErrInvalidConfig; the result is validated.
func ConfigFromMap(m map[string]string) (Config, error) {
	var c Config

	parseFloat := func(key string) (*float64, error) {
		raw, ok := m[key]
		if !ok || strings.TrimSpace(raw) == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, invalid("%s: %q is not a number", key, raw)
		}
		return &v, nil
	}
	parseBool := func(key string) (bool, error) {
		raw, ok := m[key]
		if !ok || strings.TrimSpace(raw) == "" {
			return false, nil
		}
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return false, invalid("%s: %q is not a boolean", key, raw)
		}
		return v, nil
	}

	for _, key := range slices.Sorted(maps.Keys(m)) {
		value := m[key]
		var err error
		switch key {
		case KeyName:
			c.Name = value
		case KeyDescription:
			c.Description = value
		case KeyExtendednessMin:
			c.ExtendednessMin, err = parseFloat(key)
		case KeyExtendednessMax:
			c.ExtendednessMax, err = parseFloat(key)
		case KeySNRMin:
			c.SNRMin, err = parseFloat(key)
		case KeySNRMax:
			c.SNRMax, err = parseFloat(key)
		case KeyMJDMin:
			c.MJDMin, err = parseFloat(key)
		case KeyMJDMax:
			c.MJDMax, err = parseFloat(key)
		case KeyRAMin:
			c.RAMin, err = parseFloat(key)
		case KeyRAMax:
			c.RAMax, err = parseFloat(key)
		case KeyDecMin:
			c.DecMin, err = parseFloat(key)
		case KeyDecMax:
			c.DecMax, err = parseFloat(key)
		case KeyRequireAssociation:
			c.RequireAssociation, err = parseBool(key)
		case KeyExcludeAssociation:
			c.ExcludeAssociation, err = parseBool(key)
		case KeyReassociationsOnly:
			c.ReassociationsOnly, err = parseBool(key)
		case KeyOrderDesc:
			c.OrderDesc, err = parseBool(key)
		case KeyBands:
			for _, b := range strings.Split(value, ",") {
				if band := domain.NormalizeFilterBand(b); band != "" {
					c.Bands = append(c.Bands, band)
				}
			}
		case KeyConditions:
			c.Conditions, err = parseConditions(value)
		case KeyOrderBy:
			c.OrderBy = strings.TrimSpace(value)
		case KeyLimit:
			if strings.TrimSpace(value) != "" {
				c.Limit, err = strconv.Atoi(strings.TrimSpace(value))
				if err != nil {
					err = invalid("%s: %q is not an integer", key, value)
				}
			}
		default:
			err = invalid("unknown key %q", key)
		}
		if err != nil {
			return Config{}, err
		}
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func parseConditions(raw string) ([]Condition, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var conditions []Condition
	if err := dec.Decode(&conditions); err != nil {
		return nil, invalid("conditions: %s", err.Error())
	}
	return conditions, nil
}

// Hash identifies the predicate set independently of name and description
func (c Config) Hash() string {
	m := c.ToMap()
	delete(m, KeyName)
	delete(m, KeyDescription)

	var b strings.Builder
	for _, key := range slices.Sorted(maps.Keys(m)) {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(m[key])
		b.WriteByte('\n')
	}
	sum := md5.Sum([]byte(b.String())) //nolint:gosec // identity hash, not a security boundary
	return hex.EncodeToString(sum[:])[:16]
}

// IsEmpty reports whether the config has no predicate at all
func (c Config) IsEmpty() bool {
	m := c.ToMap()
	for _, key := range []string{KeyName, KeyDescription, KeyOrderBy, KeyOrderDesc, KeyLimit} {
		delete(m, key)
	}
	return len(m) == 0
}
