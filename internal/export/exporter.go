// Package export copies the moderation ledger into a portable SQLite snapshot.
package export

import (
	"context"
	"fmt"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/export/sqlite"
	"go.uber.org/zap"
)

// Source pages through every exported table in ID order.
type Source interface {
	Users(ctx context.Context, afterID uint64, limit int) ([]*types.User, error)
	Warnings(ctx context.Context, afterID int64, limit int) ([]*types.Warning, error)
	Cases(ctx context.Context, afterID int64, limit int) ([]*types.Case, error)
	Fingerprints(ctx context.Context, afterID int64, limit int) ([]*types.ImageFingerprint, error)
	Trust(ctx context.Context, afterID uint64, limit int) ([]*types.TrustScore, error)
	Reputation(ctx context.Context, afterID uint64, limit int) ([]*types.ReputationScore, error)
}

// Summary counts the exported rows per table.
type Summary struct {
	Users        int
	Warnings     int
	Cases        int
	Fingerprints int
	Trust        int
	Reputation   int
}

// Exporter writes snapshots.
type Exporter struct {
	source    Source
	batchSize int
	logger    *zap.Logger
}

// New creates an exporter that reads batchSize rows per query.
func New(source Source, batchSize int, logger *zap.Logger) *Exporter {
	return &Exporter{
		source:    source,
		batchSize: max(batchSize, 1),
		logger:    logger.Named("export"),
	}
}

// Export writes a snapshot to path, replacing any existing file.
func (e *Exporter) Export(ctx context.Context, path string) (summary *Summary, err error) {
	w, err := sqlite.Create(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close snapshot: %w", closeErr)
		}
	}()

	summary = &Summary{}

	if summary.Users, err = copyTable(ctx, e.batchSize, e.source.Users, w.Users,
		func(u *types.User) uint64 { return u.ID }); err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}

	if summary.Warnings, err = copyTable(ctx, e.batchSize, e.source.Warnings, w.Warnings,
		func(warn *types.Warning) int64 { return warn.ID }); err != nil {
		return nil, fmt.Errorf("failed to export warnings: %w", err)
	}

	if summary.Cases, err = copyTable(ctx, e.batchSize, e.source.Cases, w.Cases,
		func(c *types.Case) int64 { return c.ID }); err != nil {
		return nil, fmt.Errorf("failed to export cases: %w", err)
	}

	if summary.Fingerprints, err = copyTable(ctx, e.batchSize, e.source.Fingerprints, w.Fingerprints,
		func(fp *types.ImageFingerprint) int64 { return fp.ID }); err != nil {
		return nil, fmt.Errorf("failed to export fingerprints: %w", err)
	}

	if summary.Trust, err = copyTable(ctx, e.batchSize, e.source.Trust, w.Trust,
		func(s *types.TrustScore) uint64 { return s.UserID }); err != nil {
		return nil, fmt.Errorf("failed to export trust scores: %w", err)
	}

	if summary.Reputation, err = copyTable(ctx, e.batchSize, e.source.Reputation, w.Reputation,
		func(s *types.ReputationScore) uint64 { return s.UserID }); err != nil {
		return nil, fmt.Errorf("failed to export reputation scores: %w", err)
	}

	e.logger.Info("Exported ledger snapshot",
		zap.String("path", path),
		zap.Int("users", summary.Users),
		zap.Int("warnings", summary.Warnings),
		zap.Int("cases", summary.Cases),
		zap.Int("fingerprints", summary.Fingerprints),
		zap.Int("trust", summary.Trust),
		zap.Int("reputation", summary.Reputation))

	return summary, nil
}

// copyTable pages rows from list into write until a short page.
func copyTable[T any, K int64 | uint64](
	ctx context.Context,
	batchSize int,
	list func(ctx context.Context, afterID K, limit int) ([]T, error),
	write func([]T) error,
	key func(T) K,
) (int, error) {
	var (
		afterID K
		total   int
	)
	for {
		rows, err := list(ctx, afterID, batchSize)
		if err != nil {
			return total, err
		}

		if err := write(rows); err != nil {
			return total, err
		}

		total += len(rows)
		if len(rows) < batchSize {
			return total, nil
		}

		afterID = key(rows[len(rows)-1])
	}
}
