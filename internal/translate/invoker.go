package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/logger"
	"github.com/averyong/lingodesk/internal/metrics"
)

// Result is the uniform per-row outcome of one provider call.
type Result struct {
	ID               string
	TargetText       map[string]string
	GlossaryMatches  []string
	GlossaryWarnings []string
	Status           domain.RowStatus // review or error
	ErrorMessage     string
}

// InvokerConfig holds the provider endpoint and retry policy.
type InvokerConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int           // total call attempts on rate limit
	BackoffBase time.Duration // first retry delay, doubled per attempt
}

// Invoker wraps the OpenAI-compatible chat completion call for one batch of
// rows. Rate limits are retried here with exponential backoff; every other
// failure surfaces to the queue after a single attempt.
type Invoker struct {
	client      *resty.Client
	model       string
	endpoint    string
	apiKey      string
	maxAttempts int
	backoffBase time.Duration

	// sleep is indirected so backoff timing can be observed in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInvoker creates a translation invoker.
// Parameters:
//   - cfg: provider endpoint, credential, and retry policy.
// Returns:
//   - *Invoker: initialized invoker.
func NewInvoker(cfg *InvokerConfig) *Invoker {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	} else {
		client.SetTimeout(60 * time.Second)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = 5 * time.Second
	}

	return &Invoker{
		client:      client,
		model:       cfg.Model,
		endpoint:    baseURL + "/chat/completions",
		apiKey:      cfg.APIKey,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		sleep:       sleepCtx,
	}
}

// Configured reports whether a provider credential is available.
func (inv *Invoker) Configured() bool {
	return inv.apiKey != ""
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// rowResult is one element of the JSON array the model is instructed to emit.
// Language keys are dynamic, so it is decoded into a raw map first.
type rowResult map[string]string

// Translate performs one batched provider call for the given rows.
// Rate limits are retried up to the configured attempt ceiling with doubling
// delay; a malformed response is terminal and not retried.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rows: batch rows (id + source text are sent).
//   - template: prompt template applied to this batch.
//   - glossary: read-only glossary snapshot.
//   - targetLangs: language codes to produce.
// Returns:
//   - []Result: one result per input row, in input order.
//   - error: non-nil if the batch failed as a whole.
func (inv *Invoker) Translate(ctx context.Context, rows []domain.TranslationRow, template domain.PromptTemplate, glossary []domain.GlossaryTerm, targetLangs []string) ([]Result, error) {
	system, user, err := BuildPrompt(template, glossary, rows, targetLangs)
	if err != nil {
		return nil, err
	}

	req := chatRequest{
		Model: inv.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var content string
	for attempt := 0; ; attempt++ {
		content, err = inv.call(ctx, req)
		if err == nil {
			break
		}
		if !IsRateLimit(err) {
			return nil, err
		}
		metrics.RateLimitRetries.Inc()
		if attempt >= inv.maxAttempts-1 {
			logger.CtxWarn(ctx, "Rate limit retries exhausted after %d attempts", inv.maxAttempts)
			return nil, err
		}
		delay := inv.backoffBase << attempt
		logger.CtxWarn(ctx, "Provider rate limited, retrying in %s (attempt %d/%d)", delay, attempt+1, inv.maxAttempts)
		if serr := inv.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}

	parsed, err := parseTranslations(content)
	if err != nil {
		return nil, err
	}

	return inv.assemble(rows, parsed, glossary, targetLangs), nil
}

// call performs a single HTTP round trip and classifies the failure.
func (inv *Invoker) call(ctx context.Context, req chatRequest) (string, error) {
	start := time.Now()
	var resp chatResponse
	httpResp, err := inv.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		ForceContentType("application/json").
		Post(inv.endpoint)
	metrics.ObserveLLMRequest(time.Since(start), err == nil && httpResp.IsSuccess())

	if err != nil {
		return "", fmt.Errorf("failed to call translation API: %w", err)
	}

	if httpResp.StatusCode() == http.StatusTooManyRequests {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return "", &RateLimitError{StatusCode: httpResp.StatusCode(), Message: msg}
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("translation API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("translation API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from translation API (status: %d)", httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}

// parseTranslations strips optional markdown code fences and decodes the
// JSON array the model was instructed to emit, keyed by row id.
func parseTranslations(content string) (map[string]rowResult, error) {
	cleaned := stripCodeFences(content)

	var items []rowResult
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, &ParseError{Raw: content, Err: err}
	}

	byID := make(map[string]rowResult, len(items))
	for _, item := range items {
		id := item["id"]
		if id == "" {
			continue
		}
		byID[id] = item
	}
	return byID, nil
}

// stripCodeFences removes a surrounding markdown code fence block, with or
// without a language tag, leaving bare content untouched.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		// Drop the language tag line (e.g. ```json)
		firstLine := strings.TrimSpace(trimmed[:idx])
		if firstLine == "" || !strings.ContainsAny(firstLine, " \t{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// assemble converts raw per-row maps into Results, running the advisory
// glossary check. A row missing from the provider output becomes an error
// result; glossary mismatches only produce warnings.
func (inv *Invoker) assemble(rows []domain.TranslationRow, parsed map[string]rowResult, glossary []domain.GlossaryTerm, targetLangs []string) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		item, ok := parsed[row.ID]
		if !ok {
			results = append(results, Result{
				ID:           row.ID,
				Status:       domain.RowStatusError,
				ErrorMessage: "row missing from provider response",
			})
			continue
		}

		target := make(map[string]string, len(targetLangs))
		for _, lang := range targetLangs {
			if text, ok := item[lang]; ok {
				target[lang] = text
			}
		}

		matches, warnings := checkGlossary(row.SourceText, target, glossary, targetLangs)
		results = append(results, Result{
			ID:               row.ID,
			TargetText:       target,
			GlossaryMatches:  matches,
			GlossaryWarnings: warnings,
			Status:           domain.RowStatusReview,
		})
	}
	return results
}

// checkGlossary verifies that every glossary term present in the source text
// appears with its mandated rendering in each target language. Mismatches are
// advisory warnings, never failures.
func checkGlossary(sourceText string, target map[string]string, glossary []domain.GlossaryTerm, targetLangs []string) (matches []string, warnings []string) {
	lowerSource := strings.ToLower(sourceText)
	for _, term := range glossary {
		if term.SourceTerm == "" || !strings.Contains(lowerSource, strings.ToLower(term.SourceTerm)) {
			continue
		}
		matches = append(matches, term.SourceTerm)

		for _, lang := range targetLangs {
			text, ok := target[lang]
			if !ok {
				continue
			}
			if term.DoNotTranslate {
				if !strings.Contains(text, term.SourceTerm) {
					warnings = append(warnings, fmt.Sprintf("term %q must appear verbatim in %s output", term.SourceTerm, lang))
				}
				continue
			}
			required, ok := term.Translations[lang]
			if !ok || required == "" {
				continue
			}
			if !strings.Contains(strings.ToLower(text), strings.ToLower(required)) {
				warnings = append(warnings, fmt.Sprintf("term %q missing required rendering %q in %s output", term.SourceTerm, required, lang))
			}
		}
	}
	return matches, warnings
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
