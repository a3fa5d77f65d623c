package processor

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/ds124wfegd/imageslicer/internal/pkg/raster"
)

type Encoder interface {
	Encode(ctx context.Context, r *raster.Raster) ([]byte, error)
}

type pngEncoder struct {
	encoder *png.Encoder
}

// NewPNGEncoder returns a lossless encoder that keeps the alpha channel.
func NewPNGEncoder(level png.CompressionLevel) Encoder {
	return &pngEncoder{encoder: &png.Encoder{CompressionLevel: level}}
}

func (e *pngEncoder) Encode(ctx context.Context, r *raster.Raster) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if r == nil || r.Width() <= 0 || r.Height() <= 0 {
		return nil, fmt.Errorf("%w: nothing to encode", entity.ErrEncodingFailure)
	}

	var buf bytes.Buffer
	if err := e.encoder.Encode(&buf, r.Image()); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrEncodingFailure, err)
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseCompressionLevel maps a config name to a PNG compression level.
func ParseCompressionLevel(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	default:
		return png.DefaultCompression, fmt.Errorf("unknown png compression %q", name)
	}
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
