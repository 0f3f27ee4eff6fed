// Package chat wraps the generative model providers behind three small
// interfaces: text in/text out, image+question in/text out, and prompt
// in/base64 image out. Every remote call runs under the retry policy and
// emits EMF latency metrics.
package chat

import (
	"context"
	"errors"
)

// TextModel generates free text from a prompt.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// VisionModel answers a question about an attached image.
type VisionModel interface {
	AskAboutImage(ctx context.Context, img Image, question string) (string, error)
}

// ImageModel renders an image from a prompt.
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string) (ImagePayload, error)
}

// Image is decoded image bytes with their MIME type.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImagePayload is the provider's base64-encoded image.
type ImagePayload struct {
	Base64   string
	MIMEType string
}

var (
	// ErrNoImagePayload means a successful response carried no image data.
	ErrNoImagePayload = errors.New("no image payload in response")

	// ErrEmptyResponse means a successful response carried no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Models bundles the three roles. Vision follows the text provider.
type Models struct {
	Text   TextModel
	Vision VisionModel
	Image  ImageModel
}
