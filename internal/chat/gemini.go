package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/fpang/synthetic-patients/internal/retry"
)

// GeminiClient serves text and vision prompts through the genai SDK, and
// image prompts through the Imagen predict endpoint when the configured
// image model is an Imagen model.
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
	policy     retry.Policy
}

var (
	_ TextModel   = (*GeminiClient)(nil)
	_ VisionModel = (*GeminiClient)(nil)
	_ ImageModel  = (*GeminiClient)(nil)
)

// NewGeminiClient creates a genai-backed client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey, textModel, imageModel string, policy retry.Policy) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if textModel == "" {
		textModel = ModelGemini3FlashPreview
	}
	if imageModel == "" {
		imageModel = ModelImagen4
	}
	return &GeminiClient{
		client:     client,
		textModel:  textModel,
		imageModel: imageModel,
		policy:     policy.Named("gemini"),
	}, nil
}

// IsImagenModel reports whether the model is served by GenerateImages rather
// than generateContent.
func IsImagenModel(model string) bool {
	return strings.HasPrefix(model, "imagen")
}

// GenerateText sends a single-turn text prompt.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) (string, error) {
		start := time.Now()
		text, err := g.content(ctx, genai.Text(prompt))
		observe(ProviderGemini, "GenerateText", g.textModel, start, err)
		return text, err
	})
}

// AskAboutImage sends an inline image followed by the question.
func (g *GeminiClient) AskAboutImage(ctx context.Context, img Image, question string) (string, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}},
			{Text: question},
		},
	}}
	return retry.Do(ctx, g.policy, func(ctx context.Context) (string, error) {
		start := time.Now()
		text, err := g.content(ctx, contents)
		observe(ProviderGemini, "AskAboutImage", g.textModel, start, err)
		return text, err
	})
}

func (g *GeminiClient) content(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, contents, nil)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateImage renders one PNG through the Imagen endpoint.
func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string) (ImagePayload, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) (ImagePayload, error) {
		start := time.Now()
		resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
			NumberOfImages: 1,
			OutputMIMEType: "image/png",
		})
		if err == nil {
			var p ImagePayload
			p, err = firstGeneratedImage(resp)
			observe(ProviderGemini, "GenerateImage", g.imageModel, start, err)
			return p, err
		}
		observe(ProviderGemini, "GenerateImage", g.imageModel, start, err)
		return ImagePayload{}, err
	})
}

func firstGeneratedImage(resp *genai.GenerateImagesResponse) (ImagePayload, error) {
	if resp == nil {
		return ImagePayload{}, ErrNoImagePayload
	}
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		mime := gi.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return ImagePayload{
			Base64:   base64.StdEncoding.EncodeToString(gi.Image.ImageBytes),
			MIMEType: mime,
		}, nil
	}
	return ImagePayload{}, ErrNoImagePayload
}
