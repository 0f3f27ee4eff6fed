package headshot

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/fpang/synthetic-patients/internal/chat"
)

// DecodePayload turns a base64 payload into validated image bytes. The MIME
// type comes from the decoded header, not from the provider's label.
func DecodePayload(p chat.ImagePayload) (chat.Image, error) {
	b64 := strings.TrimSpace(p.Base64)
	if i := strings.Index(b64, ";base64,"); i >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+len(";base64,"):]
	}
	if b64 == "" {
		return chat.Image{}, chat.ErrNoImagePayload
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(b64)
		if err != nil {
			return chat.Image{}, fmt.Errorf("decode image payload: %w", err)
		}
	}
	format, err := SniffFormat(data)
	if err != nil {
		return chat.Image{}, err
	}
	return chat.Image{Data: data, MIMEType: "image/" + format}, nil
}

// SniffFormat validates the image header and returns "png", "jpeg" or "webp".
func SniffFormat(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image data")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("generated image is not a supported format: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return "", fmt.Errorf("generated image has zero size (%dx%d)", cfg.Width, cfg.Height)
	}
	return format, nil
}

// Extension returns the file extension for an image MIME type.
func Extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// ToPNG re-encodes non-PNG images so stored headshots share one key format.
func ToPNG(img chat.Image) (chat.Image, error) {
	if img.MIMEType == "image/png" {
		return img, nil
	}
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return chat.Image{}, fmt.Errorf("decode %s for png conversion: %w", img.MIMEType, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return chat.Image{}, fmt.Errorf("encode png: %w", err)
	}
	return chat.Image{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}
