package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/repository"
	"github.com/spec-kit/checkin-service/internal/service"
)

// CleanupWorker periodically removes expired code entries for active events.
// The backing store's TTL reclaims them regardless; this keeps key counts and
// stats queries tidy between evictions.
type CleanupWorker struct {
	events   repository.EventRepository
	qr       *service.QRService
	interval time.Duration
	logger   *zap.Logger
}

// NewCleanupWorker constructs the worker.
func NewCleanupWorker(events repository.EventRepository, qrService *service.QRService, intervalSeconds int, logger *zap.Logger) *CleanupWorker {
	if intervalSeconds <= 0 {
		intervalSeconds = 300
	}
	return &CleanupWorker{
		events:   events,
		qr:       qrService,
		interval: time.Duration(intervalSeconds) * time.Second,
		logger:   logger,
	}
}

// Start runs the cleanup loop until the context is cancelled.
func (w *CleanupWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	events, err := w.events.List(ctx, true, 500, 0)
	if err != nil {
		w.logger.Warn("cleanup: list active events", zap.Error(err))
		return
	}

	removed := 0
	for i := range events {
		removed += w.qr.Cleanup(ctx, events[i].ID)
	}
	if removed > 0 {
		w.logger.Info("cleanup pass removed expired code entries", zap.Int("removed", removed))
	}
}
