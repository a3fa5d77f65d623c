package processor

import (
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/ds124wfegd/imageslicer/internal/pkg/raster"
)

// Resizer scales a raster to a fixed width keeping its aspect ratio.
type Resizer struct {
	filter imaging.ResampleFilter
}

func NewResizer(filter imaging.ResampleFilter) *Resizer {
	return &Resizer{filter: filter}
}

// ScaledHeight is srcHeight*targetWidth/srcWidth rounded half up.
func ScaledHeight(srcWidth, srcHeight, targetWidth int) int {
	num := int64(srcHeight) * int64(targetWidth)
	den := int64(srcWidth)
	return int((2*num + den) / (2 * den))
}

// Resize returns a new targetWidth wide raster holding all of src. When the
// scaled height rounds down to zero the result is an empty targetWidth x 0 raster.
func (r *Resizer) Resize(src *raster.Raster, targetWidth int) (*raster.Raster, error) {
	if src == nil || src.Width() <= 0 || src.Height() <= 0 {
		return nil, fmt.Errorf("%w: cannot resize an empty raster", entity.ErrInvalidInput)
	}
	if targetWidth <= 0 {
		return nil, fmt.Errorf("%w: target width %d", entity.ErrInvalidInput, targetWidth)
	}

	targetHeight := ScaledHeight(src.Width(), src.Height(), targetWidth)
	if targetHeight == 0 {
		return raster.New(targetWidth, 0)
	}

	resized := imaging.Resize(src.Image(), targetWidth, targetHeight, r.filter)
	return raster.FromNRGBA(resized), nil
}

// ParseFilter maps a config name to an imaging resample filter.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(name) {
	case "", "lanczos":
		return imaging.Lanczos, nil
	case "catmullrom":
		return imaging.CatmullRom, nil
	case "mitchell":
		return imaging.MitchellNetravali, nil
	case "linear":
		return imaging.Linear, nil
	case "box":
		return imaging.Box, nil
	case "nearest":
		return imaging.NearestNeighbor, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q", name)
	}
}
