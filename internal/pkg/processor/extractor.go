package processor

import (
	"fmt"
	"image"
	"sort"

	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/ds124wfegd/imageslicer/internal/pkg/raster"
)

// ExtractedRegion pairs a region descriptor with its own copy of the pixels.
type ExtractedRegion struct {
	entity.Region
	Raster *raster.Raster
}

// ExtractRegions cuts the normalized raster into the named regions.
//
// The top band (m_5, m_1, m_2, m_6) shrinks to the available height and is
// omitted entirely for an empty raster. The middle band m_3 spans
// [SplitY1, min(splitY2, height)) and is omitted when that is empty. The
// bottom region m_4 starts where the middle band stopped and is always
// TargetWidth x BottomHeight: rows the source cannot supply stay transparent.
//
// splitY2 must be non-negative; a negative value is rejected with
// ErrInvalidInput before any region is cut.
//
// The result is ordered by file name.
func ExtractRegions(normalized *raster.Raster, splitY2 int) ([]ExtractedRegion, error) {
	if normalized == nil {
		return nil, fmt.Errorf("%w: no normalized raster", entity.ErrInvalidInput)
	}
	if splitY2 < 0 {
		return nil, fmt.Errorf("%w: split_y2 %d is negative", entity.ErrInvalidInput, splitY2)
	}

	height := normalized.Height()
	regions := make([]ExtractedRegion, 0, 6)

	topHeight := min(SplitY1, height)
	if topHeight > 0 {
		for _, col := range topColumns {
			region, err := cropRegion(normalized, entity.Region{
				Name:   col.name,
				X:      col.x,
				Y:      0,
				Width:  col.width,
				Height: topHeight,
			})
			if err != nil {
				return nil, err
			}
			if region != nil {
				regions = append(regions, *region)
			}
		}
	}

	midEnd := min(splitY2, height)
	midHeight := midEnd - SplitY1
	if midHeight > 0 {
		region, err := cropRegion(normalized, entity.Region{
			Name:   RegionMiddle,
			X:      0,
			Y:      SplitY1,
			Width:  TargetWidth,
			Height: midHeight,
		})
		if err != nil {
			return nil, err
		}
		if region != nil {
			regions = append(regions, *region)
		}
	}

	bottom, err := bottomRegion(normalized, midEnd)
	if err != nil {
		return nil, err
	}
	regions = append(regions, bottom)

	sort.Slice(regions, func(i, j int) bool {
		return regions[i].FileName() < regions[j].FileName()
	})
	return regions, nil
}

// cropRegion copies desc out of src. Zero-area descriptors yield nil.
func cropRegion(src *raster.Raster, desc entity.Region) (*ExtractedRegion, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, nil
	}

	rect := image.Rect(desc.X, desc.Y, desc.X+desc.Width, desc.Y+desc.Height)
	cropped, err := raster.Crop(src, rect)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", desc.Name, err)
	}
	return &ExtractedRegion{Region: desc, Raster: cropped}, nil
}

// bottomRegion builds the fixed size m_4 starting at botStart, padding with
// transparent rows when the source runs out.
func bottomRegion(src *raster.Raster, botStart int) (ExtractedRegion, error) {
	desc := entity.Region{
		Name:   RegionBottom,
		X:      0,
		Y:      botStart,
		Width:  TargetWidth,
		Height: BottomHeight,
	}

	dst, err := raster.New(TargetWidth, BottomHeight)
	if err != nil {
		return ExtractedRegion{}, err
	}

	available := src.Height() - botStart
	if available > 0 {
		rows := min(available, BottomHeight)
		raster.Blit(dst, image.Rect(0, 0, TargetWidth, rows),
			src, image.Rect(0, botStart, TargetWidth, botStart+rows))
	}

	return ExtractedRegion{Region: desc, Raster: dst}, nil
}
