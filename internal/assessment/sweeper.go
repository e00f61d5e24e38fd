package assessment

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger removes sessions past their retention or idle past the TTL.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time, ttl time.Duration) (int64, error)
}

// Sweep runs one purge pass.
func Sweep(ctx context.Context, p Purger, now time.Time, ttl time.Duration, logger *zap.Logger) (int64, error) {
	n, err := p.PurgeExpired(ctx, now, ttl)
	if err != nil {
		logger.Warn("sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		logger.Info("expired sessions purged", zap.Int64("count", n))
	}
	return n, nil
}

// RunSweeper purges expired sessions every interval until ctx is done.
// Failed passes are logged and retried on the next tick.
func RunSweeper(ctx context.Context, p Purger, interval, ttl time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			_, _ = Sweep(ctx, p, now, ttl, logger)
		}
	}
}
