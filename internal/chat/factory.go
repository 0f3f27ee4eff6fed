package chat

import (
	"context"
	"fmt"

	"github.com/fpang/synthetic-patients/internal/retry"
)

// ProviderConfig selects providers and models for each role.
type ProviderConfig struct {
	TextProvider  string
	ImageProvider string
	TextModel     string
	ImageModel    string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	Policy        retry.Policy
}

// NewModels builds the text, vision and image models from cfg. Vision uses the
// text provider.
func NewModels(ctx context.Context, cfg ProviderConfig) (Models, error) {
	var m Models

	var gemini *GeminiClient
	geminiClient := func() (*GeminiClient, error) {
		if gemini != nil {
			return gemini, nil
		}
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider selected but no Gemini API key configured")
		}
		textModel := cfg.TextModel
		if cfg.TextProvider != ProviderGemini {
			textModel = ""
		}
		imageModel := cfg.ImageModel
		if cfg.ImageProvider != ProviderGemini {
			imageModel = ""
		}
		c, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, textModel, imageModel, cfg.Policy)
		if err != nil {
			return nil, err
		}
		gemini = c
		return c, nil
	}

	var openaiClient *OpenAIClient
	openAI := func() (*OpenAIClient, error) {
		if openaiClient != nil {
			return openaiClient, nil
		}
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but no OpenAI API key configured")
		}
		textModel := cfg.TextModel
		if cfg.TextProvider != ProviderOpenAI {
			textModel = ""
		}
		imageModel := cfg.ImageModel
		if cfg.ImageProvider != ProviderOpenAI {
			imageModel = ""
		}
		openaiClient = NewOpenAIClient(cfg.OpenAIAPIKey, textModel, imageModel, cfg.Policy)
		return openaiClient, nil
	}

	switch cfg.TextProvider {
	case ProviderGemini, "":
		c, err := geminiClient()
		if err != nil {
			return m, err
		}
		m.Text, m.Vision = c, c
	case ProviderOpenAI:
		c, err := openAI()
		if err != nil {
			return m, err
		}
		m.Text, m.Vision = c, c
	default:
		return m, fmt.Errorf("unknown text provider %q", cfg.TextProvider)
	}

	switch cfg.ImageProvider {
	case ProviderGemini, "":
		model := cfg.ImageModel
		if model == "" {
			model = DefaultImageModel(ProviderGemini)
		}
		if IsImagenModel(model) {
			c, err := geminiClient()
			if err != nil {
				return m, err
			}
			m.Image = c
		} else {
			if cfg.GeminiAPIKey == "" {
				return m, fmt.Errorf("gemini image provider selected but no Gemini API key configured")
			}
			m.Image = NewGeminiImageClient(cfg.GeminiAPIKey, model, cfg.Policy)
		}
	case ProviderOpenAI:
		c, err := openAI()
		if err != nil {
			return m, err
		}
		m.Image = c
	default:
		return m, fmt.Errorf("unknown image provider %q", cfg.ImageProvider)
	}
	return m, nil
}
