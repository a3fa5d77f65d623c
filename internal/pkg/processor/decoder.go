package processor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/ds124wfegd/imageslicer/internal/entity"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels bounds the declared size of an upload before any pixel is decoded.
const DefaultMaxPixels = 50_000_000

// Decode reads a PNG, JPEG, GIF (first frame), WebP or BMP image. The header
// is checked first: images declaring more than maxPixels pixels are rejected
// without decoding. maxPixels <= 0 disables the check.
func Decode(r io.Reader, maxPixels int64) (image.Image, string, error) {
	var header bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, fmt.Errorf("%w: image size %dx%d", entity.ErrInvalidInput, cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, format, fmt.Errorf("%w: image size %dx%d exceeds %d pixels",
			entity.ErrInvalidInput, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, format, fmt.Errorf("%w: image size %dx%d", entity.ErrInvalidInput, b.Dx(), b.Dy())
	}
	return img, format, nil
}
