package cache

import (
	"context"
	"time"

	"github.com/bassista/go_relboard/internal/logger"
)

// StartSweepScheduler runs a goroutine that periodically purges expired
// entries, so keys that are never read again do not stay in memory.
// Returns a channel that is closed when the sweeper has stopped.
func StartSweepScheduler(ctx context.Context, c *TTLCache, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	logger.WithComponent("cache").Debugf("starting cache sweeper with interval: %v", interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.WithComponent("cache").Debug("cache sweeper stopped")
				return
			case <-ticker.C:
				if n := c.Purge(); n > 0 {
					logger.WithComponent("cache").Tracef("purged %d expired entries", n)
				}
			}
		}
	}()
	return done
}
