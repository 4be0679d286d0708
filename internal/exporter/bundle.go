package exporter

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/averyong/lingodesk/internal/domain"
)

// WriteBundle produces a ZIP containing the xlsx workbook and one WPML JSON
// document per target language, ready to hand to the WordPress team.
// Parameters:
//   - projectName: used for filenames inside the archive.
//   - sourceLang: project source language code.
//   - targetLangs: languages to include.
//   - rows: rows to export, in display order.
// Returns:
//   - []byte: ZIP archive content.
//   - error: non-nil if any artifact fails to build.
func WriteBundle(projectName, sourceLang string, targetLangs []string, rows []domain.TranslationRow) ([]byte, error) {
	xlsx, err := WriteExcel(projectName, rows)
	if err != nil {
		return nil, err
	}
	docs, err := WriteWPML(projectName, sourceLang, targetLangs, rows)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create(fmt.Sprintf("%s.xlsx", projectName))
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(xlsx); err != nil {
		return nil, err
	}

	// Deterministic file order inside the archive.
	for _, lang := range targetLangs {
		doc, ok := docs[lang]
		if !ok {
			continue
		}
		w, err := zw.Create(fmt.Sprintf("%s.%s.json", projectName, lang))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(doc); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CompletedOnly filters rows to those a reviewer has approved. Used by export
// endpoints when the caller asks for publishable content only.
func CompletedOnly(rows []domain.TranslationRow) []domain.TranslationRow {
	out := make([]domain.TranslationRow, 0, len(rows))
	for _, row := range rows {
		if row.Status == domain.RowStatusCompleted {
			out = append(out, row)
		}
	}
	return out
}
