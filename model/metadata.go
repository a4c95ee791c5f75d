package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/campusrag/campusrag/helper"
)

// Metadata represents per-chunk metadata (title, url, timestamp, institution).
// Stored as JSONB when a chunk lives in PostgreSQL.
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts Metadata to JSON bytes
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal converts JSON bytes or Metadata to Metadata
func (m *Metadata) Unmarshal(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	if s, ok := value.(Metadata); ok {
		*m = s
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}

// String returns the value for key if it is a string, or "" otherwise.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Timestamp parses the "timestamp" field. Accepts RFC 3339 strings, date-only
// strings and numeric unix seconds. The second return value reports whether a
// usable timestamp was found.
func (m Metadata) Timestamp() (time.Time, bool) {
	if m == nil {
		return time.Time{}, false
	}
	switch v := m["timestamp"].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, true
		}
	case float64:
		return time.Unix(int64(v), 0).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	case time.Time:
		return v, true
	}
	return time.Time{}, false
}
