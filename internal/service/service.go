package service

import (
	"context"
	"io"
	"time"

	"github.com/ds124wfegd/imageslicer/internal/database"
	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/ds124wfegd/imageslicer/internal/pkg/kafka"
	"github.com/ds124wfegd/imageslicer/internal/pkg/processor"
)

type SliceService interface {
	SliceImage(ctx context.Context, sourceName string, src io.Reader, splitY2 int) (*entity.Run, error)
	GetRun(id string) (*entity.Run, error)
	GetSlice(id, name string) ([]byte, error)
	BuildArchive(id string) (string, []byte, error)
	ReleaseRun(id string) error
	ReleaseExpired(ctx context.Context, before time.Time) (int, error)
	DefaultSplitY2() int
}

type sliceService struct {
	repo           database.RunRepository
	producer       kafka.Producer
	slicer         processor.Slicer
	defaultSplitY2 int
	maxPixels      int64
	now            func() time.Time
}

// NewSliceService builds the service. Uploads declaring more than maxPixels
// pixels are rejected before decoding, 0 disables the budget.
func NewSliceService(repo database.RunRepository, producer kafka.Producer, slicer processor.Slicer, defaultSplitY2 int, maxPixels int64) SliceService {
	return &sliceService{
		repo:           repo,
		producer:       producer,
		slicer:         slicer,
		defaultSplitY2: defaultSplitY2,
		maxPixels:      maxPixels,
		now:            time.Now,
	}
}
