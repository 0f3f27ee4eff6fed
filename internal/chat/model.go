package chat

// Gemini Model IDs
//
// | Model Name                  | API Model ID                | Use Case                          |
// |-----------------------------|-----------------------------|-----------------------------------|
// | Gemini 3 Flash (Preview)    | gemini-3-flash-preview      | Profile extraction, cues, vision  |
// | Gemini 2.5 Flash            | gemini-2.5-flash            | Stable fallback for text/vision   |
// | Gemini 3 Pro Image          | gemini-3-pro-image-preview  | Headshot generation (REST)        |
// | Imagen 4                    | imagen-4.0-generate-001     | Headshot generation (SDK)         |
const (
	// ModelGemini3FlashPreview is best for speed + intelligence.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"

	// ModelGemini25Flash is stable, balanced performance.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini3ProImage generates images through generateContent.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelImagen4 generates images through the predict endpoint.
	ModelImagen4 = "imagen-4.0-generate-001"
)

// OpenAI model IDs.
const (
	ModelGPT41Mini = "gpt-4.1-mini"
	ModelGPTImage1 = "gpt-image-1"
)

// Provider names accepted by configuration.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultTextModel returns the text/vision model for a provider.
func DefaultTextModel(provider string) string {
	if provider == ProviderOpenAI {
		return ModelGPT41Mini
	}
	return ModelGemini3FlashPreview
}

// DefaultImageModel returns the image model for a provider.
func DefaultImageModel(provider string) string {
	if provider == ProviderOpenAI {
		return ModelGPTImage1
	}
	return ModelGemini3ProImage
}
