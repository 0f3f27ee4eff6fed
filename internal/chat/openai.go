package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/fpang/synthetic-patients/internal/retry"
)

// OpenAIClient serves all three roles through the OpenAI API.
type OpenAIClient struct {
	client     openai.Client
	textModel  string
	imageModel string
	policy     retry.Policy
}

var (
	_ TextModel   = (*OpenAIClient)(nil)
	_ VisionModel = (*OpenAIClient)(nil)
	_ ImageModel  = (*OpenAIClient)(nil)
)

// NewOpenAIClient creates an OpenAI client. SDK retries are disabled so the
// shared retry policy is the only one in play.
func NewOpenAIClient(apiKey, textModel, imageModel string, policy retry.Policy, opts ...option.RequestOption) *OpenAIClient {
	if textModel == "" {
		textModel = ModelGPT41Mini
	}
	if imageModel == "" {
		imageModel = ModelGPTImage1
	}
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	return &OpenAIClient{
		client:     openai.NewClient(append(base, opts...)...),
		textModel:  textModel,
		imageModel: imageModel,
		policy:     policy.Named("openai"),
	}
}

// GenerateText sends a single user message.
func (o *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}
	return retry.Do(ctx, o.policy, func(ctx context.Context) (string, error) {
		start := time.Now()
		text, err := o.complete(ctx, messages)
		observe(ProviderOpenAI, "GenerateText", o.textModel, start, err)
		return text, err
	})
}

// AskAboutImage attaches the image as a data URL next to the question.
func (o *OpenAIClient) AskAboutImage(ctx context.Context, img Image, question string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			openai.TextContentPart(question),
		}),
	}
	return retry.Do(ctx, o.policy, func(ctx context.Context) (string, error) {
		start := time.Now()
		text, err := o.complete(ctx, messages)
		observe(ProviderOpenAI, "AskAboutImage", o.textModel, start, err)
		return text, err
	})
}

func (o *OpenAIClient) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.textModel),
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateImage requests one image and returns its base64 payload.
func (o *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (ImagePayload, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(o.imageModel),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize1024x1024,
	}
	// gpt-image models always return base64; dall-e needs asking.
	if strings.HasPrefix(o.imageModel, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}
	return retry.Do(ctx, o.policy, func(ctx context.Context) (ImagePayload, error) {
		start := time.Now()
		p, err := o.generateOnce(ctx, params)
		observe(ProviderOpenAI, "GenerateImage", o.imageModel, start, err)
		return p, err
	})
}

func (o *OpenAIClient) generateOnce(ctx context.Context, params openai.ImageGenerateParams) (ImagePayload, error) {
	resp, err := o.client.Images.Generate(ctx, params)
	if err != nil {
		return ImagePayload{}, err
	}
	for _, d := range resp.Data {
		if d.B64JSON != "" {
			return ImagePayload{Base64: d.B64JSON, MIMEType: "image/png"}, nil
		}
	}
	return ImagePayload{}, ErrNoImagePayload
}
