package schema

import "time"

// KeyValueStore stores arbitrary key-value pairs for configuration and state
// Used for the schema version stamp and per-source consumer cursors.
type KeyValueStore struct {
	Key       string    `gorm:"primaryKey;type:text"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (KeyValueStore) TableName() string {
	return "key_value_store"
}

const (
	// SchemaVersionKey holds the schema version the database was created with
	SchemaVersionKey = "schema_version"
	// CurrentSchemaVersion is the schema version this build writes
	CurrentSchemaVersion = "1"
)
