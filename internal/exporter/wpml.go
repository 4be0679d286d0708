package exporter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/averyong/lingodesk/internal/domain"
)

// WPMLEntry is one key/value pair in a per-language WPML import document.
type WPMLEntry struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Status string `json:"status"`
}

// WPMLDocument is the per-language JSON document consumed by the WordPress
// import pipeline. One document is produced per target language.
type WPMLDocument struct {
	Project    string      `json:"project"`
	Language   string      `json:"language"`
	ExportedAt time.Time   `json:"exported_at"`
	Entries    []WPMLEntry `json:"entries"`
}

// WriteWPML renders per-language JSON documents for the given rows. Rows
// without a translation for a language are omitted from that language's
// document; the source language gets the untouched source text.
// Parameters:
//   - projectName: project label embedded in each document.
//   - sourceLang: project source language code.
//   - targetLangs: languages to emit documents for.
//   - rows: rows to export, in display order.
// Returns:
//   - map[string][]byte: language code -> serialized JSON document.
//   - error: non-nil if serialization fails.
func WriteWPML(projectName, sourceLang string, targetLangs []string, rows []domain.TranslationRow) (map[string][]byte, error) {
	now := time.Now().UTC()
	out := make(map[string][]byte, len(targetLangs))

	for _, lang := range targetLangs {
		doc := WPMLDocument{
			Project:    projectName,
			Language:   lang,
			ExportedAt: now,
			Entries:    make([]WPMLEntry, 0, len(rows)),
		}
		for _, row := range rows {
			key := row.RowKey
			if key == "" {
				key = row.ID
			}
			value := row.TargetText[lang]
			if lang == sourceLang && value == "" {
				value = row.SourceText
			}
			if value == "" {
				continue
			}
			doc.Entries = append(doc.Entries, WPMLEntry{
				Key:    key,
				Value:  value,
				Status: string(row.Status),
			})
		}

		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error serializing %s document: %w", lang, err)
		}
		out[lang] = b
	}
	return out, nil
}
