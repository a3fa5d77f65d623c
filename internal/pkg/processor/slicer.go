package processor

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/ds124wfegd/imageslicer/internal/pkg/raster"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Slicer interface {
	Slice(ctx context.Context, img image.Image, splitY2 int) (*SliceSet, error)
}

// SliceSet is the complete output of one run.
type SliceSet struct {
	SourceWidth      int
	SourceHeight     int
	NormalizedHeight int
	SplitY2          int
	Slices           []entity.SliceResult
}

type slicer struct {
	resizer *Resizer
	encoder Encoder
	workers int
}

// NewSlicer wires the pipeline. workers bounds concurrent encodes; values
// below one mean one per CPU.
func NewSlicer(resizer *Resizer, encoder Encoder, workers int) Slicer {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &slicer{resizer: resizer, encoder: encoder, workers: workers}
}

// Slice normalizes img, extracts every region and encodes them all. Either
// every slice is returned or an error is, never a partial set.
func (s *slicer) Slice(ctx context.Context, img image.Image, splitY2 int) (*SliceSet, error) {
	source, err := raster.FromImage(img)
	if err != nil {
		return nil, err
	}

	normalized, err := s.resizer.Resize(source, TargetWidth)
	if err != nil {
		return nil, err
	}

	regions, err := ExtractRegions(normalized, splitY2)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"source":     fmt.Sprintf("%dx%d", source.Width(), source.Height()),
		"normalized": fmt.Sprintf("%dx%d", normalized.Width(), normalized.Height()),
		"split_y2":   splitY2,
		"regions":    len(regions),
	}).Debug("regions extracted")

	slices, err := s.encodeAll(ctx, regions)
	if err != nil {
		return nil, err
	}

	return &SliceSet{
		SourceWidth:      source.Width(),
		SourceHeight:     source.Height(),
		NormalizedHeight: normalized.Height(),
		SplitY2:          splitY2,
		Slices:           slices,
	}, nil
}

func (s *slicer) encodeAll(ctx context.Context, regions []ExtractedRegion) ([]entity.SliceResult, error) {
	results := make([]entity.SliceResult, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, region := range regions {
		i, region := i, region
		g.Go(func() error {
			data, err := s.encoder.Encode(gctx, region.Raster)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", region.FileName(), err)
			}
			results[i] = entity.SliceResult{
				ID:     region.FileName(),
				Name:   region.FileName(),
				Bytes:  data,
				Width:  region.Width,
				Height: region.Height,
				X:      region.X,
				Y:      region.Y,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
