package domain

import "time"

// Project represents a marketing-content translation project. A project owns
// its rows and pins the glossary version used for automated translation.
type Project struct {
	ID              string      `gorm:"type:text;primaryKey" json:"id"`
	Name            string      `gorm:"type:text;not null" json:"name"`
	Description     string      `gorm:"type:text" json:"description,omitempty"`
	SourceLanguage  string      `gorm:"type:text;default:en" json:"source_language"`
	TargetLanguages StringArray `gorm:"type:text" json:"target_languages"`
	GlossaryVersion int         `gorm:"default:1" json:"glossary_version"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string {
	return "projects"
}
