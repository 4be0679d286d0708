package translate

import (
	"context"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/logger"
	"github.com/averyong/lingodesk/internal/metrics"
)

// RowUpdate carries the fields the projector writes when a batch settles.
type RowUpdate struct {
	TargetText       map[string]string
	Status           domain.RowStatus
	TemplateUsed     string
	GlossaryMatches  []string
	GlossaryWarnings []string
	ErrorMessage     string
}

// RowStore is the subset of the row repository the queue needs.
//
// BulkSetStatus writes status only and must not bump the row version; the
// version gates ApplyTranslation, which is a compare-and-swap on the version
// captured when the batch was built. A concurrent manual edit bumps the
// version and wins over the stale queue write.
type RowStore interface {
	BulkSetStatus(ctx context.Context, ids []string, to domain.RowStatus, from ...domain.RowStatus) error
	ApplyTranslation(ctx context.Context, id string, expectedVersion int, upd RowUpdate) (bool, error)
}

// Projector applies queue lifecycle transitions to the row store. It is the
// sole automated writer of rows during a translation job; reviewer edits are
// an uncoordinated out-of-band write path resolved by the version check.
type Projector struct {
	store RowStore
}

// NewProjector creates a projector over the given row store.
func NewProjector(store RowStore) *Projector {
	return &Projector{store: store}
}

// MarkQueued transitions rows to queued before any network work starts.
func (p *Projector) MarkQueued(ctx context.Context, ids []string) error {
	return p.store.BulkSetStatus(ctx, ids, domain.RowStatusQueued)
}

// MarkTranslating transitions a batch's rows to translating.
func (p *Projector) MarkTranslating(ctx context.Context, ids []string) error {
	return p.store.BulkSetStatus(ctx, ids, domain.RowStatusTranslating)
}

// Revert returns rows still owned by the queue to pending. The status filter
// keeps the revert from stomping rows a reviewer already moved on.
func (p *Projector) Revert(ctx context.Context, ids []string) error {
	return p.store.BulkSetStatus(ctx, ids, domain.RowStatusPending,
		domain.RowStatusQueued, domain.RowStatusTranslating)
}

// Apply writes per-row results for a settled batch. Each write is conditional
// on the version captured at enqueue time; a conflict means a manual edit
// superseded the translation and the stale result is dropped with a log line.
func (p *Projector) Apply(ctx context.Context, batch Batch, results []Result) {
	byID := make(map[string]Result, len(results))
	for _, res := range results {
		byID[res.ID] = res
	}

	for _, row := range batch.Rows {
		res, ok := byID[row.ID]
		if !ok {
			res = Result{
				ID:           row.ID,
				Status:       domain.RowStatusError,
				ErrorMessage: "no result returned for row",
			}
		}

		upd := RowUpdate{
			TargetText:       res.TargetText,
			Status:           res.Status,
			TemplateUsed:     batch.Template.Name,
			GlossaryMatches:  res.GlossaryMatches,
			GlossaryWarnings: res.GlossaryWarnings,
			ErrorMessage:     res.ErrorMessage,
		}

		applied, err := p.store.ApplyTranslation(ctx, row.ID, row.Version, upd)
		if err != nil {
			logger.CtxError(ctx, "Failed to apply translation result: row=%s, error=%v", row.ID, err)
			continue
		}
		if !applied {
			logger.CtxWarn(ctx, "Translation result superseded by manual edit, dropped: row=%s", row.ID)
			continue
		}
		if res.Status == domain.RowStatusReview {
			metrics.RowsTranslated.Inc()
		}
	}
}

// Fail marks every row of a terminally failed batch as error. Failure writes
// go through the same version check as successes.
func (p *Projector) Fail(ctx context.Context, batch Batch, cause error) {
	msg := cause.Error()
	for _, row := range batch.Rows {
		upd := RowUpdate{
			Status:       domain.RowStatusError,
			TemplateUsed: batch.Template.Name,
			ErrorMessage: msg,
		}
		applied, err := p.store.ApplyTranslation(ctx, row.ID, row.Version, upd)
		if err != nil {
			logger.CtxError(ctx, "Failed to mark row as error: row=%s, error=%v", row.ID, err)
			continue
		}
		if !applied {
			logger.CtxWarn(ctx, "Error status superseded by manual edit, dropped: row=%s", row.ID)
		}
	}
}
