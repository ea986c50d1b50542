// Package janitor removes anonymous learners that stopped visiting.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/learnpath/internal/metrics"
	"github.com/ashureev/learnpath/internal/store"
)

// CleanupCallback is called for every learner the janitor removes.
type CleanupCallback func(userID string)

// Sweep deletes every learner unseen for longer than ttl and returns how
// many were removed. Failures on one learner do not stop the sweep.
func Sweep(ctx context.Context, repo store.Repository, ttl time.Duration, m *metrics.Metrics, onCleanup CleanupCallback) (int, error) {
	stale, err := repo.GetStaleLearners(ctx, ttl)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, l := range stale {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if err := repo.DeleteLearner(ctx, l.UserID); err != nil {
			slog.Error("Janitor failed to delete learner", "error", err, "user_id", l.UserID)
			continue
		}
		removed++
		if m != nil {
			m.StaleLearners.Inc()
		}
		if onCleanup != nil {
			onCleanup(l.UserID)
		}
		slog.Info("Janitor removed stale learner", "user_id", l.UserID, "last_seen_at", l.LastSeenAt)
	}
	return removed, nil
}

// Start runs Sweep every interval until ctx is cancelled.
func Start(ctx context.Context, repo store.Repository, interval, ttl time.Duration, m *metrics.Metrics, onCleanup CleanupCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Janitor started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if _, err := Sweep(ctx, repo, ttl, m, onCleanup); err != nil && ctx.Err() == nil {
					slog.Error("Janitor sweep failed", "error", err)
				}
			case <-ctx.Done():
				slog.Info("Janitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
