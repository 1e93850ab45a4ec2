package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sleep waits for the duration or until ctx is done.
// Returns false when the context was cancelled first.
func Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// IntervalSleep is Sleep with a log line on cancellation, used between worker iterations.
func IntervalSleep(ctx context.Context, d time.Duration, logger *zap.Logger, workerName string) bool {
	if Sleep(ctx, d) {
		return true
	}

	logger.Info("Context cancelled during pause, stopping " + workerName)

	return false
}

// ContextGuard reports whether ctx is already done.
func ContextGuard(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
