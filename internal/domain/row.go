package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// RowStatus represents the lifecycle state of a translation row.
// Automated transitions are driven by the batch queue; completed and
// pending (after reject) are reached through reviewer actions.
type RowStatus string

const (
	RowStatusPending     RowStatus = "pending"
	RowStatusQueued      RowStatus = "queued"
	RowStatusTranslating RowStatus = "translating"
	RowStatusReview      RowStatus = "review"
	RowStatusCompleted   RowStatus = "completed"
	RowStatusError       RowStatus = "error"
)

// LangMap is a custom type for storing per-language text as JSON in the database.
type LangMap map[string]string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the map.
//   - error: non-nil if marshaling fails.
func (m LangMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *LangMap) Scan(value interface{}) error {
	if value == nil {
		*m = LangMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan LangMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// TranslationRow represents one translatable unit of content (a label,
// heading, paragraph) tracked through pending -> translated -> reviewed states.
// SourceText is never mutated by the queue. Version increases on every write
// and gates conditional queue writes against concurrent manual edits.
type TranslationRow struct {
	ID               string      `gorm:"type:text;primaryKey" json:"id"`
	ProjectID        string      `gorm:"type:text;not null;index:idx_rows_project" json:"project_id"`
	RowKey           string      `gorm:"type:text" json:"row_key"`
	SourceText       string      `gorm:"type:text;not null" json:"source_text"`
	TargetText       LangMap     `gorm:"type:text" json:"target_text"`
	Status           RowStatus   `gorm:"type:text;index:idx_rows_status;default:pending" json:"status"`
	TemplateUsed     string      `gorm:"type:text" json:"template_used"`
	GlossaryMatches  StringArray `gorm:"type:text" json:"glossary_matches"`
	GlossaryWarnings StringArray `gorm:"type:text" json:"glossary_warnings"`
	ErrorMessage     string      `gorm:"type:text" json:"error_message,omitempty"`
	Origin           string      `gorm:"type:text" json:"origin"` // excel, image, manual
	Version          int         `gorm:"default:1" json:"version"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// TableName returns the database table name for TranslationRow.
func (TranslationRow) TableName() string {
	return "translation_rows"
}
