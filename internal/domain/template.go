package domain

import "time"

// PromptTemplate is a named reusable instruction text for the prompt builder.
// At most one template should be flagged as default.
type PromptTemplate struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	Name       string    `gorm:"type:text;not null;uniqueIndex:idx_templates_name" json:"name"`
	PromptText string    `gorm:"type:text;not null" json:"prompt_text"`
	IsDefault  bool      `gorm:"default:false" json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for PromptTemplate.
func (PromptTemplate) TableName() string {
	return "prompt_templates"
}
