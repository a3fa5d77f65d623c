package worker

import (
	"context"
	"time"

	"github.com/ds124wfegd/imageslicer/internal/service"

	"github.com/sirupsen/logrus"
)

// RunReleaseWorker releases runs nobody deleted explicitly once they are
// older than the retention period.
type RunReleaseWorker struct {
	sliceService service.SliceService
	interval     time.Duration
	retention    time.Duration
	now          func() time.Time
}

func NewRunReleaseWorker(sliceService service.SliceService, interval, retention time.Duration) *RunReleaseWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &RunReleaseWorker{
		sliceService: sliceService,
		interval:     interval,
		retention:    retention,
		now:          time.Now,
	}
}

func (w *RunReleaseWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Run release worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Run release worker stopped")
			return
		case <-ticker.C:
			w.releaseExpired(ctx)
		}
	}
}

func (w *RunReleaseWorker) releaseExpired(ctx context.Context) int {
	cutoff := w.now().Add(-w.retention)

	released, err := w.sliceService.ReleaseExpired(ctx, cutoff)
	if err != nil {
		logrus.Errorf("Failed to release expired runs: %v", err)
	}
	if released > 0 {
		logrus.Infof("Released %d expired runs", released)
	}
	return released
}
