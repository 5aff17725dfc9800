// Package images inspects uploaded image bytes.
package images

import (
	"bytes"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/nixground/nixground-server/internal/errors"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Info describes a decoded image header.
type Info struct {
	WidthPx  int
	HeightPx int
	// Format is the decoder name, e.g. "jpeg", "png", "webp".
	Format string
}

// Probe reads the image header and returns its dimensions and format.
// It never decodes full pixel data.
func Probe(data []byte) (*Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.SourceRejected("Source is not a supported image format").WithCause(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.SourceRejectedf("Source reports invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return &Info{
		WidthPx:  cfg.Width,
		HeightPx: cfg.Height,
		Format:   format,
	}, nil
}
