package exporter

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/averyong/lingodesk/internal/domain"
)

func sampleRows() []domain.TranslationRow {
	return []domain.TranslationRow{
		{
			ID:         "id-1",
			RowKey:     "hero.title",
			SourceText: "Shop the sale",
			TargetText: domain.LangMap{"en": "Shop the sale", "ms": "Beli di jualan", "zh": "来抢购吧"},
			Status:     domain.RowStatusCompleted,
		},
		{
			ID:         "id-2",
			RowKey:     "hero.cta",
			SourceText: "Buy now",
			TargetText: domain.LangMap{"ms": "Beli sekarang"},
			Status:     domain.RowStatusReview,
		},
		{
			ID:         "id-3",
			SourceText: "Untranslated line",
			Status:     domain.RowStatusPending,
		},
	}
}

func TestWriteExcelRoundTrip(t *testing.T) {
	content, err := WriteExcel("campaign", sampleRows())
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	if rows[0][0] != "Key" || rows[0][1] != "Source" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "hero.title" || rows[1][3] != "Beli di jualan" {
		t.Errorf("data row 1 = %v", rows[1])
	}
	if rows[1][5] != "completed" {
		t.Errorf("status cell = %q, want completed", rows[1][5])
	}
}

func TestWriteWPML(t *testing.T) {
	docs, err := WriteWPML("campaign", "en", []string{"en", "ms", "zh"}, sampleRows())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3", len(docs))
	}

	var msDoc WPMLDocument
	if err := json.Unmarshal(docs["ms"], &msDoc); err != nil {
		t.Fatalf("decode ms doc: %v", err)
	}
	if msDoc.Language != "ms" || msDoc.Project != "campaign" {
		t.Errorf("ms doc meta = %+v", msDoc)
	}
	// id-3 has no ms translation and is omitted.
	if len(msDoc.Entries) != 2 {
		t.Fatalf("ms entries = %d, want 2", len(msDoc.Entries))
	}
	if msDoc.Entries[0].Key != "hero.title" || msDoc.Entries[0].Value != "Beli di jualan" {
		t.Errorf("ms entry 0 = %+v", msDoc.Entries[0])
	}

	// Source language falls back to the source text.
	var enDoc WPMLDocument
	if err := json.Unmarshal(docs["en"], &enDoc); err != nil {
		t.Fatalf("decode en doc: %v", err)
	}
	if len(enDoc.Entries) != 3 {
		t.Fatalf("en entries = %d, want 3 (source fallback)", len(enDoc.Entries))
	}
	last := enDoc.Entries[2]
	if last.Key != "id-3" {
		t.Errorf("keyless row should fall back to its id, got %q", last.Key)
	}
	if last.Value != "Untranslated line" {
		t.Errorf("en fallback value = %q", last.Value)
	}
}

func TestWriteBundle(t *testing.T) {
	content, err := WriteBundle("campaign", "en", []string{"en", "ms"}, sampleRows())
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}

	want := map[string]bool{
		"campaign.xlsx":    false,
		"campaign.en.json": false,
		"campaign.ms.json": false,
	}
	for _, zf := range zr.File {
		if _, ok := want[zf.Name]; !ok {
			t.Errorf("unexpected archive entry %q", zf.Name)
			continue
		}
		want[zf.Name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("archive entry %q missing", name)
		}
	}
}

func TestCompletedOnly(t *testing.T) {
	filtered := CompletedOnly(sampleRows())
	if len(filtered) != 1 {
		t.Fatalf("got %d rows, want 1", len(filtered))
	}
	if filtered[0].ID != "id-1" {
		t.Errorf("kept %s, want id-1", filtered[0].ID)
	}
}
