package request

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunPurge periodically hard-deletes soft-deleted requests whose grace
// period has elapsed. It shares the expiry rule with the restore transition:
// a row is swept only once a restore of it would already be rejected.
func RunPurge(
	ctx context.Context,
	repo Repository,
	logger *zap.Logger,
	interval time.Duration,
	now func() time.Time,
) {
	if interval <= 0 {
		interval = time.Hour
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	log := logger.Named("request.purge")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("purge worker started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("purge worker stopped")
			return
		case <-ticker.C:
			cutoff := now().Add(-GracePeriod)
			purged, err := repo.DeleteExpired(ctx, cutoff)
			if err != nil {
				log.Error("purge sweep failed", zap.Error(err))
				continue
			}
			if purged > 0 {
				log.Info("purged expired requests",
					zap.Int64("count", purged),
					zap.Time("cutoff", cutoff),
				)
			}
		}
	}
}
