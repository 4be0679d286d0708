package exporter

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/averyong/lingodesk/internal/domain"
)

const exportSheet = "Translations"

var exportHeaders = []string{"Key", "Source", "English (en)", "Malay (ms)", "Chinese (zh)", "Status"}

// exportLangs is the column order for target languages in the workbook.
var exportLangs = []string{"en", "ms", "zh"}

// WriteExcel renders the project's rows as an xlsx workbook.
// Parameters:
//   - projectName: used for the sheet title metadata.
//   - rows: rows to export, in display order.
// Returns:
//   - []byte: xlsx file content.
//   - error: non-nil if workbook assembly fails.
func WriteExcel(projectName string, rows []domain.TranslationRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	_ = f.SetDocProps(&excelize.DocProperties{Title: projectName, Creator: "lingodesk"})

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, err
		}
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
		_ = f.SetCellStyle(exportSheet, "A1", endCell, boldStyle)
	}

	for i, row := range rows {
		values := []interface{}{row.RowKey, row.SourceText}
		for _, lang := range exportLangs {
			values = append(values, row.TargetText[lang])
		}
		values = append(values, string(row.Status))

		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
