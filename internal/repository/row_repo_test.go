package repository

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/translate"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.TranslationRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedRow(t *testing.T, repo *RowRepository, id string) *domain.TranslationRow {
	t.Helper()
	row := &domain.TranslationRow{
		ID:         id,
		ProjectID:  "p1",
		SourceText: "hello",
		TargetText: domain.LangMap{},
		Status:     domain.RowStatusPending,
		Version:    1,
	}
	if err := repo.Create(context.Background(), row); err != nil {
		t.Fatalf("create row: %v", err)
	}
	return row
}

func TestBulkSetStatusDoesNotBumpVersion(t *testing.T) {
	repo := NewRowRepository(testDB(t))
	ctx := context.Background()
	seedRow(t, repo, "r1")
	seedRow(t, repo, "r2")

	if err := repo.BulkSetStatus(ctx, []string{"r1", "r2"}, domain.RowStatusQueued); err != nil {
		t.Fatalf("bulk set: %v", err)
	}

	for _, id := range []string{"r1", "r2"} {
		row, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if row.Status != domain.RowStatusQueued {
			t.Errorf("%s status = %s, want queued", id, row.Status)
		}
		if row.Version != 1 {
			t.Errorf("%s version = %d, marker writes must not bump it", id, row.Version)
		}
	}
}

func TestBulkSetStatusFromFilter(t *testing.T) {
	repo := NewRowRepository(testDB(t))
	ctx := context.Background()
	seedRow(t, repo, "r1")
	completed := seedRow(t, repo, "r2")
	completed.Status = domain.RowStatusCompleted
	if err := repo.db.Save(completed).Error; err != nil {
		t.Fatalf("save: %v", err)
	}

	// Revert-style write: only queue-owned states move back to pending.
	if err := repo.BulkSetStatus(ctx, []string{"r1", "r2"}, domain.RowStatusPending,
		domain.RowStatusPending, domain.RowStatusQueued, domain.RowStatusTranslating); err != nil {
		t.Fatalf("bulk set: %v", err)
	}

	row, _ := repo.GetByID(ctx, "r2")
	if row.Status != domain.RowStatusCompleted {
		t.Errorf("completed row was stomped, status = %s", row.Status)
	}
}

func TestApplyTranslationVersionGate(t *testing.T) {
	repo := NewRowRepository(testDB(t))
	ctx := context.Background()
	seedRow(t, repo, "r1")

	upd := translate.RowUpdate{
		TargetText:   map[string]string{"ms": "helo"},
		Status:       domain.RowStatusReview,
		TemplateUsed: "default",
	}

	applied, err := repo.ApplyTranslation(ctx, "r1", 1, upd)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied {
		t.Fatal("expected matching version to apply")
	}

	row, _ := repo.GetByID(ctx, "r1")
	if row.Status != domain.RowStatusReview {
		t.Errorf("status = %s, want review", row.Status)
	}
	if row.Version != 2 {
		t.Errorf("version = %d, want 2 after result write", row.Version)
	}
	if row.TargetText["ms"] != "helo" {
		t.Errorf("target ms = %q", row.TargetText["ms"])
	}
	if row.TemplateUsed != "default" {
		t.Errorf("template used = %q", row.TemplateUsed)
	}

	// Stale write against the old version must be dropped.
	applied, err = repo.ApplyTranslation(ctx, "r1", 1, upd)
	if err != nil {
		t.Fatalf("stale apply: %v", err)
	}
	if applied {
		t.Fatal("stale version should not apply")
	}
}

func TestManualUpdateSupersedesQueueResult(t *testing.T) {
	repo := NewRowRepository(testDB(t))
	ctx := context.Background()
	row := seedRow(t, repo, "r1")

	// Reviewer edits while the queue call is in flight.
	row.TargetText = domain.LangMap{"ms": "edit manual"}
	if err := repo.Update(ctx, row); err != nil {
		t.Fatalf("update: %v", err)
	}
	if row.Version != 2 {
		t.Fatalf("version = %d, manual edit must bump it", row.Version)
	}

	// The queue's write was built against version 1 and must lose.
	applied, err := repo.ApplyTranslation(ctx, "r1", 1, translate.RowUpdate{
		TargetText: map[string]string{"ms": "stale machine output"},
		Status:     domain.RowStatusReview,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied {
		t.Fatal("stale queue write must not supersede a manual edit")
	}

	got, _ := repo.GetByID(ctx, "r1")
	if got.TargetText["ms"] != "edit manual" {
		t.Errorf("ms = %q, manual edit should win", got.TargetText["ms"])
	}
}

func TestSetStatusGuardsTransition(t *testing.T) {
	repo := NewRowRepository(testDB(t))
	ctx := context.Background()
	seedRow(t, repo, "r1")

	// pending -> completed via approve is not a legal reviewer transition.
	if err := repo.SetStatus(ctx, "r1", domain.RowStatusCompleted, domain.RowStatusReview); err == nil {
		t.Fatal("expected transition guard to reject pending -> completed")
	}

	if err := repo.BulkSetStatus(ctx, []string{"r1"}, domain.RowStatusReview); err != nil {
		t.Fatalf("bulk set: %v", err)
	}
	if err := repo.SetStatus(ctx, "r1", domain.RowStatusCompleted, domain.RowStatusReview); err != nil {
		t.Fatalf("approve: %v", err)
	}
	row, _ := repo.GetByID(ctx, "r1")
	if row.Status != domain.RowStatusCompleted {
		t.Errorf("status = %s, want completed", row.Status)
	}
	if row.Version != 2 {
		t.Errorf("version = %d, reviewer transitions bump it", row.Version)
	}
}

func TestListByProjectFilterAndPaging(t *testing.T) {
	repo := NewRowRepository(testDB(t))
	ctx := context.Background()
	for _, id := range []string{"r1", "r2", "r3"} {
		seedRow(t, repo, id)
	}
	if err := repo.BulkSetStatus(ctx, []string{"r2"}, domain.RowStatusReview); err != nil {
		t.Fatalf("bulk set: %v", err)
	}

	rows, total, err := repo.ListByProject(ctx, "p1", domain.RowStatusPending, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("total = %d, rows = %d, want 2/2", total, len(rows))
	}

	rows, total, err = repo.ListByProject(ctx, "p1", "", 2, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(rows) != 2 {
		t.Errorf("page size = %d, want 2", len(rows))
	}
}

func TestListByIDsPreservesOrder(t *testing.T) {
	repo := NewRowRepository(testDB(t))
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		seedRow(t, repo, id)
	}

	rows, err := repo.ListByIDs(ctx, []string{"c", "a", "missing"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ID != "c" || rows[1].ID != "a" {
		t.Errorf("order = %s, %s; want c, a", rows[0].ID, rows[1].ID)
	}
}
