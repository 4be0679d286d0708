package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/averyong/lingodesk/internal/domain"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

func writeChat(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, chatReply(content))
}

func testInvoker(t *testing.T, handler http.HandlerFunc) (*Invoker, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	inv := NewInvoker(&InvokerConfig{
		Model:       "test-model",
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		MaxAttempts: 3,
		BackoffBase: 5 * time.Second,
	})
	return inv, srv
}

func testRows(n int) []domain.TranslationRow {
	rows := make([]domain.TranslationRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, domain.TranslationRow{
			ID:         fmt.Sprintf("r%d", i),
			SourceText: fmt.Sprintf("hello %d", i),
			Version:    1,
		})
	}
	return rows
}

func TestTranslateParsesPlainJSON(t *testing.T) {
	inv, _ := testInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		writeChat(w, `[{"id":"r0","en":"hello 0","ms":"helo 0","zh":"你好 0"}]`)
	})

	results, err := inv.Translate(context.Background(), testRows(1), domain.PromptTemplate{PromptText: "translate"}, nil, []string{"en", "ms", "zh"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.Status != domain.RowStatusReview {
		t.Errorf("status = %s, want review", res.Status)
	}
	if res.TargetText["ms"] != "helo 0" {
		t.Errorf("ms = %q, want %q", res.TargetText["ms"], "helo 0")
	}
}

func TestTranslateStripsCodeFences(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"fenced with tag", "```json\n[{\"id\":\"r0\",\"en\":\"hi\"}]\n```"},
		{"fenced bare", "```\n[{\"id\":\"r0\",\"en\":\"hi\"}]\n```"},
		{"surrounding whitespace", "\n\n  [{\"id\":\"r0\",\"en\":\"hi\"}]  \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, _ := testInvoker(t, func(w http.ResponseWriter, r *http.Request) {
				writeChat(w, tt.content)
			})
			results, err := inv.Translate(context.Background(), testRows(1), domain.PromptTemplate{}, nil, []string{"en"})
			if err != nil {
				t.Fatalf("translate: %v", err)
			}
			if results[0].TargetText["en"] != "hi" {
				t.Errorf("en = %q, want %q", results[0].TargetText["en"], "hi")
			}
		})
	}
}

func TestTranslateRetriesRateLimitWithBackoff(t *testing.T) {
	var calls atomic.Int32
	inv, _ := testInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	})

	var delays []time.Duration
	inv.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := inv.Translate(context.Background(), testRows(1), domain.PromptTemplate{}, nil, []string{"en"})
	if !IsRateLimit(err) {
		t.Fatalf("err = %v, want rate limit error", err)
	}

	if got := calls.Load(); got != 3 {
		t.Fatalf("made %d calls, want 3 (max attempts)", got)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("got %d backoff sleeps, want %d", len(delays), len(want))
	}
	for i, d := range want {
		if delays[i] != d {
			t.Errorf("delay %d = %s, want %s (doubling)", i, delays[i], d)
		}
	}
}

func TestTranslateRecoversAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	inv, _ := testInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeChat(w, `[{"id":"r0","en":"hi"}]`)
	})
	inv.sleep = func(context.Context, time.Duration) error { return nil }

	results, err := inv.Translate(context.Background(), testRows(1), domain.PromptTemplate{}, nil, []string{"en"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("made %d calls, want 2", calls.Load())
	}
	if results[0].TargetText["en"] != "hi" {
		t.Errorf("en = %q, want %q", results[0].TargetText["en"], "hi")
	}
}

func TestTranslateParseErrorIsTerminal(t *testing.T) {
	var calls atomic.Int32
	inv, _ := testInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeChat(w, "I'm sorry, I cannot translate that.")
	})
	inv.sleep = func(context.Context, time.Duration) error {
		t.Fatal("parse errors must not trigger backoff")
		return nil
	}

	_, err := inv.Translate(context.Background(), testRows(1), domain.PromptTemplate{}, nil, []string{"en"})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("made %d calls, want 1 (no retry)", calls.Load())
	}
}

func TestTranslateMissingRowBecomesErrorResult(t *testing.T) {
	inv, _ := testInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		writeChat(w, `[{"id":"r0","en":"hi"}]`)
	})

	results, err := inv.Translate(context.Background(), testRows(2), domain.PromptTemplate{}, nil, []string{"en"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if results[0].Status != domain.RowStatusReview {
		t.Errorf("r0 status = %s, want review", results[0].Status)
	}
	if results[1].Status != domain.RowStatusError {
		t.Errorf("r1 status = %s, want error", results[1].Status)
	}
	if results[1].ErrorMessage == "" {
		t.Error("missing row should carry an error message")
	}
}

func TestGlossaryMismatchIsAdvisory(t *testing.T) {
	glossary := []domain.GlossaryTerm{
		{SourceTerm: "Raya", DoNotTranslate: true},
		{SourceTerm: "voucher", Translations: domain.LangMap{"ms": "baucar"}},
	}
	rows := []domain.TranslationRow{
		{ID: "r0", SourceText: "Get your Raya voucher now", Version: 1},
	}

	inv, _ := testInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		// "Raya" dropped from ms, "voucher" not rendered as "baucar".
		writeChat(w, `[{"id":"r0","ms":"Dapatkan kupon anda sekarang"}]`)
	})

	results, err := inv.Translate(context.Background(), rows, domain.PromptTemplate{}, glossary, []string{"ms"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	res := results[0]
	if res.Status != domain.RowStatusReview {
		t.Fatalf("status = %s, want review (warnings are advisory)", res.Status)
	}
	if len(res.GlossaryMatches) != 2 {
		t.Errorf("matches = %v, want both terms", res.GlossaryMatches)
	}
	if len(res.GlossaryWarnings) != 2 {
		t.Errorf("warnings = %v, want 2", res.GlossaryWarnings)
	}
}

func TestGlossaryHonoredProducesNoWarnings(t *testing.T) {
	glossary := []domain.GlossaryTerm{
		{SourceTerm: "voucher", Translations: domain.LangMap{"ms": "baucar"}},
	}
	rows := []domain.TranslationRow{
		{ID: "r0", SourceText: "Claim your voucher", Version: 1},
	}

	inv, _ := testInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		writeChat(w, `[{"id":"r0","ms":"Tuntut baucar anda"}]`)
	})

	results, err := inv.Translate(context.Background(), rows, domain.PromptTemplate{}, glossary, []string{"ms"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if len(results[0].GlossaryWarnings) != 0 {
		t.Errorf("warnings = %v, want none", results[0].GlossaryWarnings)
	}
	if len(results[0].GlossaryMatches) != 1 {
		t.Errorf("matches = %v, want 1", results[0].GlossaryMatches)
	}
}

func TestTranslateAcceptsMislabeledContentType(t *testing.T) {
	// Some gateways serve chat completions as text/plain or with no
	// Content-Type at all; the response body must still be decoded.
	inv, _ := testInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, chatReply(`[{"id":"r0","en":"hi"}]`))
	})

	results, err := inv.Translate(context.Background(), testRows(1), domain.PromptTemplate{}, nil, []string{"en"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if results[0].TargetText["en"] != "hi" {
		t.Errorf("en = %q, want %q", results[0].TargetText["en"], "hi")
	}
}

func TestConfigured(t *testing.T) {
	if NewInvoker(&InvokerConfig{APIKey: ""}).Configured() {
		t.Error("empty key should report not configured")
	}
	if !NewInvoker(&InvokerConfig{APIKey: "k"}).Configured() {
		t.Error("non-empty key should report configured")
	}
}
