package imageinfo

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Inspector reads image dimensions from the header without decoding pixels.
type Inspector struct{}

func New() Inspector {
	return Inspector{}
}

func (Inspector) Dimensions(r io.Reader) (int, int, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%s image reports empty dimensions", format)
	}
	return cfg.Width, cfg.Height, nil
}
