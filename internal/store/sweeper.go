package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartSweeper runs a periodic expiry sweep on its own goroutine until ctx
// is cancelled. Each tick removes entries older than maxAge. The sweep
// shares the store's lock scope, so it never races foreground inserts, and
// each pass holds the lock only briefly.
func (s *Store) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 || maxAge <= 0 {
		s.logger.Warn("sweeper disabled: non-positive interval or max age",
			zap.Duration("interval", interval),
			zap.Duration("max_age", maxAge))
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.logger.Info("expiry sweeper started",
			zap.Duration("interval", interval),
			zap.Duration("max_age", maxAge))

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("expiry sweeper stopped")
				return
			case <-ticker.C:
				s.ClearExpired(maxAge)
			}
		}
	}()
}
