package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/prompts"
)

// promptRow is the per-row payload embedded in the user message.
type promptRow struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// BuildPrompt merges the template text, glossary constraints, and the batch
// payload into the system/user message pair for one provider call.
// Parameters:
//   - template: reusable instruction text selected by the caller.
//   - glossary: read-only glossary snapshot for the project's version.
//   - rows: batch rows; only id and source text are sent.
//   - targetLangs: language codes the model must produce.
// Returns:
//   - string: system message (instructions + glossary + output format).
//   - string: user message (JSON rows payload).
//   - error: non-nil if the rows payload cannot be encoded.
func BuildPrompt(template domain.PromptTemplate, glossary []domain.GlossaryTerm, rows []domain.TranslationRow, targetLangs []string) (string, string, error) {
	var sb strings.Builder
	sb.WriteString(template.PromptText)
	sb.WriteString("\n\nTarget languages: ")
	sb.WriteString(strings.Join(targetLangs, ", "))

	if len(glossary) > 0 {
		sb.WriteString("\n\nGlossary constraints:")
		for _, term := range glossary {
			if term.DoNotTranslate {
				sb.WriteString(fmt.Sprintf("\n- %q must appear verbatim in every translation (do not translate).", term.SourceTerm))
				continue
			}
			var renderings []string
			for _, lang := range targetLangs {
				if t, ok := term.Translations[lang]; ok && t != "" {
					renderings = append(renderings, fmt.Sprintf("%s=%q", lang, t))
				}
			}
			if len(renderings) > 0 {
				sb.WriteString(fmt.Sprintf("\n- %q must be rendered as: %s.", term.SourceTerm, strings.Join(renderings, ", ")))
			}
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(prompts.OutputFormatInstructions)

	payload := make([]promptRow, 0, len(rows))
	for _, r := range rows {
		payload = append(payload, promptRow{ID: r.ID, Source: r.SourceText})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode rows payload: %w", err)
	}

	user := "Translate the following items:\n" + string(body)
	return sb.String(), user, nil
}
