package importer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/averyong/lingodesk/internal/domain"
)

// Column indices for the import spreadsheet (0-based).
const (
	colKey    = 0 // Column A: stable row key (optional)
	colSource = 1 // Column B: source text (required)
	colEn     = 2 // Column C: pre-filled English (optional)
	colMs     = 3 // Column D: pre-filled Malay (optional)
	colZh     = 4 // Column E: pre-filled Chinese (optional)

	headerRowIndex = 1 // Excel rows are 1-based, header is row 1
	maxSourceLen   = 10000
)

// SourceRow represents a parsed row from the import spreadsheet.
type SourceRow struct {
	Row       int // Excel row number (for error reporting)
	Key       string
	Source    string
	Prefilled map[string]string // language code -> existing translation
}

// ImportError represents a validation error for a specific row.
type ImportError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult summarizes a completed spreadsheet import.
type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ValidateRow validates a single row and returns an error message or empty string.
func ValidateRow(row SourceRow) string {
	if strings.TrimSpace(row.Source) == "" {
		return "source text is required"
	}
	if len(row.Source) > maxSourceLen {
		return fmt.Sprintf("source text exceeds %d characters", maxSourceLen)
	}
	return ""
}

// ParseExcel reads an xlsx workbook from memory and extracts source rows from
// the first sheet. The header row is skipped; blank rows are ignored.
// Parameters:
//   - content: raw xlsx file bytes.
// Returns:
//   - []SourceRow: parsed rows in sheet order.
//   - error: non-nil if the workbook cannot be opened or has no sheets.
func ParseExcel(content []byte) ([]SourceRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("error opening Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %q: %w", sheets[0], err)
	}

	parsed := make([]SourceRow, 0, len(rows))
	for i, cells := range rows {
		rowNum := i + 1
		if rowNum == headerRowIndex {
			continue
		}
		if isBlank(cells) {
			continue
		}
		sr := SourceRow{
			Row:       rowNum,
			Key:       cellAt(cells, colKey),
			Source:    cellAt(cells, colSource),
			Prefilled: map[string]string{},
		}
		if v := cellAt(cells, colEn); v != "" {
			sr.Prefilled["en"] = v
		}
		if v := cellAt(cells, colMs); v != "" {
			sr.Prefilled["ms"] = v
		}
		if v := cellAt(cells, colZh); v != "" {
			sr.Prefilled["zh"] = v
		}
		parsed = append(parsed, sr)
	}
	return parsed, nil
}

// BuildRows validates parsed rows and converts the valid ones into new
// translation rows for the given project. Invalid rows are reported in the
// result rather than aborting the whole import.
func BuildRows(projectID string, parsed []SourceRow) ([]domain.TranslationRow, ImportResult) {
	result := ImportResult{}
	out := make([]domain.TranslationRow, 0, len(parsed))
	for _, sr := range parsed {
		if msg := ValidateRow(sr); msg != "" {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Row: sr.Row, Error: msg})
			continue
		}
		row := domain.TranslationRow{
			ID:         uuid.New().String(),
			ProjectID:  projectID,
			RowKey:     sr.Key,
			SourceText: strings.TrimSpace(sr.Source),
			TargetText: domain.LangMap(sr.Prefilled),
			Status:     domain.RowStatusPending,
			Origin:     "excel",
			Version:    1,
		}
		out = append(out, row)
		result.Imported++
	}
	return out, result
}

func cellAt(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
