package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// StringPtr converts a string to a pointer to a string
func StringPtr(s string) *string {
	return &s
}

// Float64Ptr converts a float64 to a pointer to a float64
func Float64Ptr(f float64) *float64 {
	return &f
}

// Int64Ptr converts an int64 to a pointer to an int64
func Int64Ptr(i int64) *int64 {
	return &i
}

// StringNilOrEmpty checks if a pointer to a string is nil or empty
func StringNilOrEmpty(s *string) bool {
	return s == nil || *s == ""
}

// SafeString returns a safe string from a pointer to a string
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// EqualStringPtr compares two optional strings by value
func EqualStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// EqualFloat64Ptr compares two optional floats by value
func EqualFloat64Ptr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// MarshalJSONMap converts a map into a JSON column value. A nil map becomes NULL.
func MarshalJSONMap(m map[string]any) (datatypes.JSON, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json column: %w", err)
	}
	return datatypes.JSON(b), nil
}

// UnmarshalJSONMap converts a JSON column value back into a map. NULL becomes a nil map.
// Integral numbers are decoded as int64, all other numbers as float64.
func UnmarshalJSONMap(j datatypes.JSON) (map[string]any, error) {
	if len(j) == 0 || string(j) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(j))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	for k, v := range m {
		m[k] = decodeNumbers(v)
	}
	return m, nil
}

// UnmarshalJSONRecords converts a JSON array column into a list of maps, decoding
// numbers the way UnmarshalJSONMap does
func UnmarshalJSONRecords(j datatypes.JSON) ([]map[string]any, error) {
	if len(j) == 0 || string(j) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(j))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	for _, r := range records {
		for k, v := range r {
			r[k] = decodeNumbers(v)
		}
	}
	return records, nil
}

func decodeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = decodeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = decodeNumbers(e)
		}
	}
	return v
}
