// Package maintenance runs the periodic background jobs: message retention
// cleanup and refreshing stale trust scores of active users.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/settings"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"go.uber.org/zap"
)

// EventStore prunes stored message events.
type EventStore interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StaleTrustLister pages through active users with outdated trust scores.
type StaleTrustLister interface {
	ListStaleTrust(ctx context.Context, activeSince, staleBefore time.Time, afterID uint64, limit int) ([]uint64, error)
}

// TrustRefresher recomputes trust scores that are no longer fresh.
type TrustRefresher interface {
	Refresh(ctx context.Context, userIDs []uint64, concurrency int) error
}

// Reporter receives task progress.
type Reporter interface {
	UpdateStatus(task string, progress int)
	SetHealthy(healthy bool)
}

// Worker runs the maintenance jobs.
type Worker struct {
	events   EventStore
	scores   StaleTrustLister
	trust    TrustRefresher
	settings settings.Source
	cfg      *config.WorkerConfig
	reporter Reporter
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a maintenance worker.
func New(
	events EventStore,
	scores StaleTrustLister,
	trust TrustRefresher,
	source settings.Source,
	cfg *config.WorkerConfig,
	reporter Reporter,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		events:   events,
		scores:   scores,
		trust:    trust,
		settings: source,
		cfg:      cfg,
		reporter: reporter,
		now:      time.Now,
		logger:   logger.Named("maintenance"),
	}
}

// Start runs both jobs once and then on their own intervals until ctx ends.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Maintenance worker started")

	if delay := time.Duration(w.cfg.StartupDelay) * time.Millisecond; delay > 0 {
		if !utils.IntervalSleep(ctx, delay, w.logger, "maintenance worker") {
			return
		}
	}

	cleanup := time.NewTicker(minutes(w.cfg.Retention.CleanupInterval, 60))
	defer cleanup.Stop()

	refresh := time.NewTicker(minutes(w.cfg.TrustRefresh.Interval, 60))
	defer refresh.Stop()

	w.runCleanup(ctx)
	w.runRefresh(ctx)

	for {
		select {
		case <-cleanup.C:
			w.runCleanup(ctx)
		case <-refresh.C:
			w.runRefresh(ctx)
		case <-ctx.Done():
			w.logger.Info("Maintenance worker stopped")
			return
		}
	}
}

func (w *Worker) runCleanup(ctx context.Context) {
	w.reporter.UpdateStatus("Retention cleanup", 0)

	if _, err := w.Cleanup(ctx); err != nil {
		w.logger.Error("Retention cleanup failed", zap.Error(err))
		w.reporter.SetHealthy(false)
		return
	}

	w.reporter.SetHealthy(true)
	w.reporter.UpdateStatus("Idle", 100)
}

func (w *Worker) runRefresh(ctx context.Context) {
	w.reporter.UpdateStatus("Trust refresh", 0)

	if _, err := w.RefreshTrust(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.logger.Error("Trust refresh failed", zap.Error(err))
		w.reporter.SetHealthy(false)
		return
	}

	w.reporter.SetHealthy(true)
	w.reporter.UpdateStatus("Idle", 100)
}

// Cleanup deletes message events older than the retention window.
func (w *Worker) Cleanup(ctx context.Context) (int64, error) {
	days := w.cfg.Retention.MessageDays
	if days <= 0 {
		days = 30
	}

	cutoff := w.now().AddDate(0, 0, -days)

	deleted, err := w.events.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}

	w.logger.Info("Deleted old message events",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff))

	return deleted, nil
}

// RefreshTrust recomputes trust for users active in the last refresh interval
// whose cached score is older than the cache window. It returns the number of users refreshed.
func (w *Worker) RefreshTrust(ctx context.Context) (int, error) {
	now := w.now()
	activeSince := now.Add(-minutes(w.cfg.TrustRefresh.Interval, 60))
	staleBefore := now.Add(-time.Duration(w.settings.Current().Trust.CacheHours) * time.Hour)
	batchSize := max(w.cfg.TrustRefresh.BatchSize, 1)

	var (
		afterID uint64
		total   int
	)
	for {
		if utils.ContextGuard(ctx) {
			return total, ctx.Err()
		}

		ids, err := w.scores.ListStaleTrust(ctx, activeSince, staleBefore, afterID, batchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			break
		}

		if err := w.trust.Refresh(ctx, ids, w.cfg.TrustRefresh.Concurrency); err != nil {
			return total, fmt.Errorf("failed to refresh trust: %w", err)
		}

		total += len(ids)
		afterID = ids[len(ids)-1]

		w.reporter.UpdateStatus("Trust refresh", min(99, total))

		if len(ids) < batchSize {
			break
		}
	}

	w.logger.Info("Refreshed stale trust scores", zap.Int("users", total))

	return total, nil
}

// minutes converts a configured minute count with a fallback for unset values.
func minutes(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Minute
}
