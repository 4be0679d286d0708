package domain

import "time"

// GlossaryTerm maps a source-language term to mandated target-language
// renderings. Terms flagged DoNotTranslate must appear verbatim in every
// target rendering. The queue treats the active set for a version as a
// read-only snapshot; CRUD is owned by glossary managers.
type GlossaryTerm struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	SourceTerm     string    `gorm:"type:text;not null;index:idx_glossary_term" json:"source_term"`
	Translations   LangMap   `gorm:"type:text" json:"translations"`
	Category       string    `gorm:"type:text;index:idx_glossary_category" json:"category"`
	DoNotTranslate bool      `gorm:"default:false" json:"do_not_translate"`
	Version        int       `gorm:"default:1;index:idx_glossary_version" json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for GlossaryTerm.
func (GlossaryTerm) TableName() string {
	return "glossary_terms"
}
