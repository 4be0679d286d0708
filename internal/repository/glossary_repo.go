package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/averyong/lingodesk/internal/domain"
)

// GlossaryRepository handles glossary term data operations. It also serves as
// the queue's glossary snapshot source: a running job reads terms at the
// version it started with, so edits made mid-job apply to later jobs only.
type GlossaryRepository struct {
	db *gorm.DB
}

// NewGlossaryRepository creates a new GlossaryRepository.
func NewGlossaryRepository(db *gorm.DB) *GlossaryRepository {
	return &GlossaryRepository{db: db}
}

// Create inserts a new glossary term.
func (r *GlossaryRepository) Create(ctx context.Context, term *domain.GlossaryTerm) error {
	return r.db.WithContext(ctx).Create(term).Error
}

// GetByID retrieves a term by its ID.
func (r *GlossaryRepository) GetByID(ctx context.Context, id string) (*domain.GlossaryTerm, error) {
	var term domain.GlossaryTerm
	if err := r.db.WithContext(ctx).First(&term, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &term, nil
}

// List retrieves all terms, optionally filtered by category.
func (r *GlossaryRepository) List(ctx context.Context, category string) ([]domain.GlossaryTerm, error) {
	query := r.db.WithContext(ctx).Order("source_term ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var terms []domain.GlossaryTerm
	if err := query.Find(&terms).Error; err != nil {
		return nil, err
	}
	return terms, nil
}

// ActiveTerms returns terms visible at or before the given glossary version.
// Terms added after a job started carry a higher version and are excluded
// until the next job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - version: glossary version snapshot; 0 means all current terms.
// Returns:
//   - []domain.GlossaryTerm: terms in the snapshot.
//   - error: non-nil if the query fails.
func (r *GlossaryRepository) ActiveTerms(ctx context.Context, version int) ([]domain.GlossaryTerm, error) {
	query := r.db.WithContext(ctx).Order("source_term ASC")
	if version > 0 {
		query = query.Where("version <= ?", version)
	}
	var terms []domain.GlossaryTerm
	if err := query.Find(&terms).Error; err != nil {
		return nil, err
	}
	return terms, nil
}

// Update saves changes to a term.
func (r *GlossaryRepository) Update(ctx context.Context, term *domain.GlossaryTerm) error {
	return r.db.WithContext(ctx).Save(term).Error
}

// Delete removes a term.
func (r *GlossaryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.GlossaryTerm{}, "id = ?", id).Error
}

// MaxVersion returns the highest term version, used to stamp projects when a
// job starts.
func (r *GlossaryRepository) MaxVersion(ctx context.Context) (int, error) {
	var version int
	err := r.db.WithContext(ctx).Model(&domain.GlossaryTerm{}).
		Select("COALESCE(MAX(version), 0)").Scan(&version).Error
	return version, err
}
