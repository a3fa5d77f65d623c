package processor

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/ds124wfegd/imageslicer/internal/pkg/raster"
	"github.com/stretchr/testify/require"
)

// fillImageWithColor fills the whole image with one color
func fillImageWithColor(img *image.RGBA, c color.RGBA) {
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// rowColor encodes the row index so extracted pixels can be traced back to their source row.
func rowColor(y int) color.NRGBA {
	return color.NRGBA{R: uint8(y % 256), G: uint8(y / 256), B: 7, A: 255}
}

// rowRaster builds a normalized-width raster where every row has its own color.
func rowRaster(t *testing.T, height int) *raster.Raster {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, TargetWidth, height))
	for y := 0; y < height; y++ {
		c := rowColor(y)
		for x := 0; x < TargetWidth; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return raster.FromNRGBA(img)
}

func nrgbaAt(t *testing.T, r *raster.Raster, x, y int) color.NRGBA {
	t.Helper()
	img, ok := r.Image().(*image.NRGBA)
	require.True(t, ok, "raster is not backed by NRGBA")
	return img.NRGBAAt(x, y)
}
