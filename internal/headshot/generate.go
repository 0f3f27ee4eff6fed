package headshot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/chat"
)

// Generator calls the image model and validates what comes back.
type Generator struct {
	model chat.ImageModel
}

func NewGenerator(model chat.ImageModel) *Generator {
	return &Generator{model: model}
}

// Generate returns decoded image bytes. A success response without a payload
// fails with chat.ErrNoImagePayload.
func (g *Generator) Generate(ctx context.Context, prompt string) (chat.Image, error) {
	start := time.Now()
	payload, err := g.model.GenerateImage(ctx, prompt)
	if err != nil {
		return chat.Image{}, fmt.Errorf("image generation: %w", err)
	}
	img, err := DecodePayload(payload)
	if err != nil {
		return chat.Image{}, fmt.Errorf("image generation: %w", err)
	}
	log.Debug().
		Int("bytes", len(img.Data)).
		Str("mime", img.MIMEType).
		Dur("duration", time.Since(start)).
		Msg("Headshot image generated")
	return img, nil
}
