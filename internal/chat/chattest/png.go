package chattest

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"

	"github.com/fpang/synthetic-patients/internal/chat"
)

// PNG returns a small valid PNG payload.
func PNG() chat.ImagePayload {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 240, G: 240, B: 235, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return chat.ImagePayload{Base64: base64.StdEncoding.EncodeToString(buf.Bytes()), MIMEType: "image/png"}
}

// ImageReply wraps PNG as a scripted reply.
func ImageReply() Reply { return Reply{Image: PNG()} }
