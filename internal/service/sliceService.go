package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/ds124wfegd/imageslicer/internal/pkg/archive"
	"github.com/ds124wfegd/imageslicer/internal/pkg/processor"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SliceImage decodes src and runs the whole pipeline. The run is stored only
// once every slice has been encoded.
func (s *sliceService) SliceImage(ctx context.Context, sourceName string, src io.Reader, splitY2 int) (*entity.Run, error) {
	img, format, err := processor.Decode(src, s.maxPixels)
	if err != nil {
		return nil, err
	}

	set, err := s.slicer.Slice(ctx, img, splitY2)
	if err != nil {
		return nil, err
	}

	run := &entity.Run{
		ID:               uuid.New().String(),
		SourceName:       sourceName,
		SourceWidth:      set.SourceWidth,
		SourceHeight:     set.SourceHeight,
		NormalizedHeight: set.NormalizedHeight,
		SplitY2:          set.SplitY2,
		CreatedAt:        s.now().UTC(),
		Slices:           set.Slices,
	}

	if err := s.repo.Save(run); err != nil {
		return nil, fmt.Errorf("storing run: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"source":   sourceName,
		"format":   format,
		"split_y2": splitY2,
		"slices":   len(run.Slices),
	}).Info("Image sliced")

	if err := s.producer.SendMessage(ctx, run.ID, entity.NewRunEvent(run)); err != nil {
		logrus.Warnf("Failed to publish run event %s: %v", run.ID, err)
	}

	return run, nil
}

func (s *sliceService) GetRun(id string) (*entity.Run, error) {
	return s.repo.FindByID(id)
}

func (s *sliceService) GetSlice(id, name string) ([]byte, error) {
	return s.repo.GetSlice(id, name)
}

// BuildArchive packs every slice of the run. A packaging failure leaves the
// individual slices available.
func (s *sliceService) BuildArchive(id string) (string, []byte, error) {
	run, err := s.repo.FindByID(id)
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	data, err := archive.Pack(archive.FromSlices(run.Slices), now)
	if err != nil {
		return "", nil, err
	}
	return archive.Name(now), data, nil
}

func (s *sliceService) ReleaseRun(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	logrus.WithField("run_id", id).Info("Run released")
	return nil
}

// ReleaseExpired drops every run created before the cutoff.
func (s *sliceService) ReleaseExpired(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.repo.ListCreatedBefore(before)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		if err := s.repo.Delete(id); err != nil {
			logrus.Errorf("Failed to release run %s: %v", id, err)
			continue
		}
		released++
	}
	return released, nil
}

func (s *sliceService) DefaultSplitY2() int {
	return s.defaultSplitY2
}
