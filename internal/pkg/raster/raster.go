// Package raster wraps a decoded image in an NRGBA pixel buffer with its
// origin at (0,0) and provides the blit primitive the slicer is built on.
package raster

import (
	"fmt"
	"image"

	"github.com/ds124wfegd/imageslicer/internal/entity"
	"golang.org/x/image/draw"
)

type Raster struct {
	img *image.NRGBA
}

// New allocates a fully transparent raster.
func New(width, height int) (*Raster, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative raster size %dx%d", entity.ErrInvalidInput, width, height)
	}
	return &Raster{img: image.NewNRGBA(image.Rect(0, 0, width, height))}, nil
}

// FromImage copies img into a new raster. Images without pixels are rejected.
func FromImage(img image.Image) (*Raster, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no image", entity.ErrInvalidInput)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", entity.ErrInvalidInput, b.Dx(), b.Dy())
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Raster{img: dst}, nil
}

// FromNRGBA takes ownership of img, moving its origin to (0,0) if needed.
func FromNRGBA(img *image.NRGBA) *Raster {
	if img.Rect.Min != (image.Point{}) {
		shifted := image.NewNRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
		draw.Draw(shifted, shifted.Bounds(), img, img.Rect.Min, draw.Src)
		img = shifted
	}
	return &Raster{img: img}
}

func (r *Raster) Width() int {
	return r.img.Rect.Dx()
}

func (r *Raster) Height() int {
	return r.img.Rect.Dy()
}

func (r *Raster) Bounds() image.Rectangle {
	return r.img.Rect
}

// Image exposes the underlying buffer for encoders. Callers must not mutate it.
func (r *Raster) Image() image.Image {
	return r.img
}

// Blit draws srcRect of src into dstRect of dst. Equal sizes are copied pixel
// for pixel, anything else is scaled with Catmull-Rom. Pixels of srcRect that
// fall outside src leave dst untouched.
func Blit(dst *Raster, dstRect image.Rectangle, src *Raster, srcRect image.Rectangle) {
	if dstRect.Empty() || srcRect.Empty() {
		return
	}

	if dstRect.Size() == srcRect.Size() {
		draw.Copy(dst.img, dstRect.Min, src.img, srcRect, draw.Src, nil)
		return
	}

	draw.CatmullRom.Scale(dst.img, dstRect, src.img, srcRect, draw.Src, nil)
}

// Crop returns an independent copy of rect. rect must lie inside src.
func Crop(src *Raster, rect image.Rectangle) (*Raster, error) {
	if rect.Empty() {
		return nil, fmt.Errorf("%w: empty crop %v", entity.ErrInvalidInput, rect)
	}
	if !rect.In(src.Bounds()) {
		return nil, fmt.Errorf("%w: crop %v outside %v", entity.ErrInvalidInput, rect, src.Bounds())
	}

	dst, err := New(rect.Dx(), rect.Dy())
	if err != nil {
		return nil, err
	}
	Blit(dst, dst.Bounds(), src, rect)
	return dst, nil
}
