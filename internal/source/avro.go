package source

import (
	"fmt"

	"github.com/hamba/avro/v2"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

// avroPrimitives are the type names a generically decoded union value may be keyed by
var avroPrimitives = map[string]struct{}{
	"null": {}, "boolean": {}, "int": {}, "long": {}, "float": {},
	"double": {}, "bytes": {}, "string": {},
}

// AvroDecoder decodes schemaless Avro payloads with a fixed writer schema
type AvroDecoder struct {
	schema avro.Schema
}

// NewAvroDecoder parses the writer schema used to encode payloads
func NewAvroDecoder(schema string) (*AvroDecoder, error) {
	s, err := avro.Parse(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to parse avro schema: %w", err)
	}
	return &AvroDecoder{schema: s}, nil
}

// Decode converts one payload into a raw alert
func (d *AvroDecoder) Decode(data []byte) (domain.RawAlert, error) {
	var record map[string]any
	if err := avro.Unmarshal(d.schema, data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode avro payload: %w", err)
	}
	return unwrapAvroRecord(record), nil
}

// unwrapAvroRecord replaces union wrappers such as {"double": 1.5} with the wrapped value
func unwrapAvroRecord(record map[string]any) domain.RawAlert {
	out := make(domain.RawAlert, len(record))
	for k, v := range record {
		out[k] = unwrapAvroValue(v)
	}
	return out
}

func unwrapAvroValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		if len(value) == 1 {
			for name, inner := range value {
				if _, ok := avroPrimitives[name]; ok {
					return unwrapAvroValue(inner)
				}
			}
		}
		return map[string]any(unwrapAvroRecord(value))
	case []any:
		items := make([]any, len(value))
		for i, item := range value {
			items[i] = unwrapAvroValue(item)
		}
		return items
	case []byte:
		return string(value)
	default:
		return v
	}
}
