package store

import (
	"context"
	"log/slog"
	"time"
)

const retentionWorkerInterval = time.Hour

// StartRetentionWorker runs a background goroutine that periodically removes
// predictions older than retention. A non-positive retention disables it.
func StartRetentionWorker(ctx context.Context, repo Repository, retention time.Duration) {
	if retention <= 0 {
		slog.Info("Retention worker disabled")
		return
	}

	ticker := time.NewTicker(retentionWorkerInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", retentionWorkerInterval, "retention", retention)

		purgeExpiredPredictions(ctx, repo, retention, time.Now())
		for {
			select {
			case now := <-ticker.C:
				purgeExpiredPredictions(ctx, repo, retention, now)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func purgeExpiredPredictions(ctx context.Context, repo Repository, retention time.Duration, now time.Time) {
	deleted, err := repo.PurgePredictions(ctx, now.Add(-retention))
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Retention worker: context canceled during purge", "error", err)
			return
		}
		slog.Error("Retention worker failed to purge predictions", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Retention worker purged predictions", "count", deleted)
	}
}
