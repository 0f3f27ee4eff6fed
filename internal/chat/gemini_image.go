package chat

// gemini_image.go provides a REST client for Gemini image-output models.
// Image-output models are driven through generateContent with the IMAGE
// response modality; the REST call keeps the raw base64 payload intact so it
// can be validated before decoding.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/retry"
)

// geminiBaseURL is the Gemini REST API base URL.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiImageClient calls a Gemini image model via the REST API.
type GeminiImageClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
}

// NewGeminiImageClient creates a new client for Gemini image generation.
func NewGeminiImageClient(apiKey, model string, policy retry.Policy) *GeminiImageClient {
	if model == "" {
		model = ModelGemini3ProImage
	}
	return &GeminiImageClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Image generation can take 10-30s
		},
		policy: policy.Named("gemini-image"),
	}
}

// WithBaseURL points the client at a different endpoint. Used by tests.
func (c *GeminiImageClient) WithBaseURL(u string) *GeminiImageClient {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// --- REST API request/response types ---

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobData `json:"inlineData,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiBlobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// StatusError is a non-200 response from the REST API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Code, e.Body)
}

// StatusCode exposes the HTTP status to the retry classifier.
func (e *StatusError) StatusCode() int { return e.Code }

// GenerateImage sends the prompt and returns the first inline image part.
func (c *GeminiImageClient) GenerateImage(ctx context.Context, prompt string) (ImagePayload, error) {
	return retry.Do(ctx, c.policy, func(ctx context.Context) (ImagePayload, error) {
		start := time.Now()
		p, err := c.generateOnce(ctx, prompt)
		observe(ProviderGemini, "GenerateImage", c.model, start, err)
		return p, err
	})
}

func (c *GeminiImageClient) generateOnce(ctx context.Context, prompt string) (ImagePayload, error) {
	log.Debug().
		Str("model", c.model).
		Int("prompt_length", len(prompt)).
		Msg("Sending prompt to Gemini for image generation")

	req := geminiRequest{
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return ImagePayload{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ImagePayload{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ImagePayload{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ImagePayload{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return ImagePayload{}, &StatusError{Code: resp.StatusCode, Body: truncateString(string(respBody), 200)}
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return ImagePayload{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if geminiResp.Error != nil {
		return ImagePayload{}, &StatusError{Code: geminiResp.Error.Code, Body: geminiResp.Error.Message}
	}

	var text string
	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return ImagePayload{Base64: part.InlineData.Data, MIMEType: mime}, nil
			}
			text += part.Text
		}
	}
	return ImagePayload{}, fmt.Errorf("%w (text: %s)", ErrNoImagePayload, truncateString(text, 200))
}

// truncateString truncates a string to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
