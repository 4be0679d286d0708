package importer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/prompts"

	// Register decoders so uploads can be sniffed before the vision call.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// OCRService extracts source text from marketing images using a vision model
// behind an OpenAI-compatible Chat Completion endpoint.
type OCRService struct {
	client   *resty.Client
	model    string
	apiKey   string
	endpoint string
}

// OCRConfig holds configuration for the OCR service.
type OCRConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewOCRService creates a new OCR service.
// Parameters:
//   - cfg: OCR configuration including model, API key and endpoint.
// Returns:
//   - *OCRService: initialized vision client wrapper.
func NewOCRService(cfg *OCRConfig) *OCRService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OCRService{
		client:   client,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		endpoint: baseURL + "/chat/completions",
	}
}

// Configured reports whether an API key is available.
func (s *OCRService) Configured() bool {
	return s.apiKey != ""
}

// OpenAI-compatible Chat Completion API request/response structures
type visionRequest struct {
	Model     string          `json:"model"`
	Messages  []visionMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type visionMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for user with images
}

type visionTextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type visionImageContent struct {
	Type     string         `json:"type"`
	ImageURL visionImageURL `json:"image_url"`
}

type visionImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type visionResponse struct {
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

// SniffFormat decodes the image header and returns the detected format name
// (jpeg, png, gif, webp). Rejects anything the vision API cannot accept.
func SniffFormat(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unsupported or corrupt image: %w", err)
	}
	return format, nil
}

// ExtractText extracts the visible text from an image.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageData: raw image bytes (jpeg, png, gif, webp).
//   - format: image format name as returned by SniffFormat.
// Returns:
//   - string: extracted text (may be empty).
//   - error: non-nil if the API request fails.
func (s *OCRService) ExtractText(ctx context.Context, imageData []byte, format string) (string, error) {
	base64Image := base64.StdEncoding.EncodeToString(imageData)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType(format), base64Image)

	req := visionRequest{
		Model: s.model,
		Messages: []visionMessage{
			{
				Role:    "system",
				Content: prompts.OCRSystemPrompt,
			},
			{
				Role: "user",
				Content: []interface{}{
					visionTextContent{
						Type: "text",
						Text: prompts.OCRUserPrompt,
					},
					visionImageContent{
						Type: "image_url",
						ImageURL: visionImageURL{
							URL:    dataURL,
							Detail: "auto", // better text recognition than low
						},
					},
				},
			},
		},
		MaxTokens: 400,
	}

	var resp visionResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return "", fmt.Errorf("failed to call OCR API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("OCR API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("OCR API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OCR API (status: %d)", httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}

// RowsFromText splits extracted OCR text into one translation row per
// non-empty line. Each line of a marketing image is typically an independent
// unit (headline, tagline, call to action).
func RowsFromText(projectID, keyPrefix, text string) []domain.TranslationRow {
	lines := strings.Split(text, "\n")
	rows := make([]domain.TranslationRow, 0, len(lines))
	n := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n++
		rows = append(rows, domain.TranslationRow{
			ID:         uuid.New().String(),
			ProjectID:  projectID,
			RowKey:     fmt.Sprintf("%s-%d", keyPrefix, n),
			SourceText: line,
			TargetText: domain.LangMap{},
			Status:     domain.RowStatusPending,
			Origin:     "image",
			Version:    1,
		})
	}
	return rows
}

func mimeType(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
