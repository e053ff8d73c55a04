package artifacts

import (
	"context"
	"log/slog"
	"time"
)

// Pruner removes run artifacts older than a retention age.
type Pruner interface {
	PruneOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// CleanupService periodically removes runs whose artifacts have aged out.
type CleanupService struct {
	pruner   Pruner
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
}

// NewCleanupService creates a cleanup service.
func NewCleanupService(pruner Pruner, maxAge, interval time.Duration, logger *slog.Logger) *CleanupService {
	if interval == 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupService{
		pruner:   pruner,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the cleanup loop.
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("artifact cleanup service started", "interval", s.interval, "max_age", s.maxAge)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("artifact cleanup service stopping (context)")
			return
		case <-s.stopCh:
			s.logger.Info("artifact cleanup service stopping (signal)")
			return
		case <-ticker.C:
			count, err := s.pruner.PruneOlderThan(ctx, s.maxAge)
			if err != nil {
				s.logger.Error("artifact cleanup failed", "error", err)
			} else if count > 0 {
				s.logger.Info("artifact cleanup completed", "pruned_runs", count)
			}
		}
	}
}

// Stop signals the cleanup service to stop.
func (s *CleanupService) Stop() {
	close(s.stopCh)
}
