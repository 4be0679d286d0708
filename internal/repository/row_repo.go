package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/translate"
)

// RowRepository handles translation row data operations. It implements
// translate.RowStore: queue marker writes touch status only, while result
// writes are compare-and-swap on the row version so a concurrent manual edit
// (which bumps the version) wins over a stale automated write.
type RowRepository struct {
	db *gorm.DB
}

// NewRowRepository creates a new RowRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RowRepository: repository instance bound to db.
func NewRowRepository(db *gorm.DB) *RowRepository {
	return &RowRepository{db: db}
}

// Create inserts a new row record.
func (r *RowRepository) Create(ctx context.Context, row *domain.TranslationRow) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// CreateBatch inserts many rows in one statement (importers).
func (r *RowRepository) CreateBatch(ctx context.Context, rows []domain.TranslationRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// GetByID retrieves a row by its ID.
func (r *RowRepository) GetByID(ctx context.Context, id string) (*domain.TranslationRow, error) {
	var row domain.TranslationRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByIDs retrieves rows by id, preserving the order of the input ids.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: row ids to fetch.
// Returns:
//   - []domain.TranslationRow: found rows in input order; missing ids are skipped.
//   - error: non-nil if the query fails.
func (r *RowRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.TranslationRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []domain.TranslationRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]domain.TranslationRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	ordered := make([]domain.TranslationRow, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}

// ListByProject retrieves rows for a project with optional status filter and paging.
func (r *RowRepository) ListByProject(ctx context.Context, projectID string, status domain.RowStatus, limit, offset int) ([]domain.TranslationRow, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.TranslationRow{}).Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []domain.TranslationRow
	if err := query.Order("created_at ASC, id ASC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update saves a manual edit and bumps the row version, which invalidates any
// pending conditional write from the queue for the old version.
func (r *RowRepository) Update(ctx context.Context, row *domain.TranslationRow) error {
	row.Version++
	return r.db.WithContext(ctx).Save(row).Error
}

// SetStatus transitions a single row (reviewer approve/reject path). The
// optional from filter guards against racing transitions.
func (r *RowRepository) SetStatus(ctx context.Context, id string, to domain.RowStatus, from ...domain.RowStatus) error {
	query := r.db.WithContext(ctx).Model(&domain.TranslationRow{}).Where("id = ?", id)
	if len(from) > 0 {
		query = query.Where("status IN ?", from)
	}
	res := query.Updates(map[string]interface{}{
		"status":  to,
		"version": gorm.Expr("version + 1"),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("row %s not in an eligible status", id)
	}
	return nil
}

// BulkSetStatus applies a queue lifecycle marker to many rows in one
// statement. Status-only: the version is deliberately not bumped so the
// queue's own markers never invalidate its result write.
func (r *RowRepository) BulkSetStatus(ctx context.Context, ids []string, to domain.RowStatus, from ...domain.RowStatus) error {
	if len(ids) == 0 {
		return nil
	}
	query := r.db.WithContext(ctx).Model(&domain.TranslationRow{}).Where("id IN ?", ids)
	if len(from) > 0 {
		query = query.Where("status IN ?", from)
	}
	return query.Update("status", to).Error
}

// ApplyTranslation writes a settled batch result for one row, conditional on
// the version captured when the batch was built.
// Returns:
//   - bool: false if a manual edit superseded the result (version mismatch).
//   - error: non-nil if the update fails.
func (r *RowRepository) ApplyTranslation(ctx context.Context, id string, expectedVersion int, upd translate.RowUpdate) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.TranslationRow{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"target_text":       domain.LangMap(upd.TargetText),
			"status":            upd.Status,
			"template_used":     upd.TemplateUsed,
			"glossary_matches":  domain.StringArray(upd.GlossaryMatches),
			"glossary_warnings": domain.StringArray(upd.GlossaryWarnings),
			"error_message":     upd.ErrorMessage,
			"version":           gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes a row.
func (r *RowRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.TranslationRow{}, "id = ?", id).Error
}

// DeleteByProject removes all rows belonging to a project.
func (r *RowRepository) DeleteByProject(ctx context.Context, projectID string) error {
	return r.db.WithContext(ctx).Delete(&domain.TranslationRow{}, "project_id = ?", projectID).Error
}

// CountByStatus returns per-status row counts for a project (review dashboard).
func (r *RowRepository) CountByStatus(ctx context.Context, projectID string) (map[domain.RowStatus]int64, error) {
	type statusCount struct {
		Status domain.RowStatus
		Count  int64
	}
	var counts []statusCount
	if err := r.db.WithContext(ctx).Model(&domain.TranslationRow{}).
		Select("status, count(*) as count").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	result := make(map[domain.RowStatus]int64, len(counts))
	for _, c := range counts {
		result[c.Status] = c.Count
	}
	return result, nil
}
