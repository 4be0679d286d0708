package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/prompts"
)

// TemplateRepository handles prompt template data operations
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a new template.
func (r *TemplateRepository) Create(ctx context.Context, tmpl *domain.PromptTemplate) error {
	return r.db.WithContext(ctx).Create(tmpl).Error
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*domain.PromptTemplate, error) {
	var tmpl domain.PromptTemplate
	if err := r.db.WithContext(ctx).First(&tmpl, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// List retrieves all templates.
func (r *TemplateRepository) List(ctx context.Context) ([]domain.PromptTemplate, error) {
	var templates []domain.PromptTemplate
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// GetDefault returns the template marked as default, falling back to the
// built-in marketing prompt when none exists yet.
func (r *TemplateRepository) GetDefault(ctx context.Context) (*domain.PromptTemplate, error) {
	var tmpl domain.PromptTemplate
	err := r.db.WithContext(ctx).First(&tmpl, "is_default = ?", true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.PromptTemplate{
			Name:       "default",
			PromptText: prompts.DefaultTranslationPrompt,
			IsDefault:  true,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// Update saves changes to a template.
func (r *TemplateRepository) Update(ctx context.Context, tmpl *domain.PromptTemplate) error {
	return r.db.WithContext(ctx).Save(tmpl).Error
}

// SetDefault marks one template as default and clears the flag on the rest.
func (r *TemplateRepository) SetDefault(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.PromptTemplate{}).Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.PromptTemplate{}).Where("id = ?", id).
			Update("is_default", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Delete removes a template.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.PromptTemplate{}, "id = ?", id).Error
}

// Seed ensures the built-in default template exists.
func (r *TemplateRepository) Seed(ctx context.Context) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.PromptTemplate{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.Create(ctx, &domain.PromptTemplate{
		ID:         uuid.New().String(),
		Name:       "default",
		PromptText: prompts.DefaultTranslationPrompt,
		IsDefault:  true,
	})
}
