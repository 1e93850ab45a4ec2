package models

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// WarningModel handles the warning ledger.
type WarningModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewWarning creates a WarningModel.
func NewWarning(db *bun.DB, logger *zap.Logger) *WarningModel {
	return &WarningModel{
		db:     db,
		logger: logger.Named("db_warning"),
	}
}

// Insert adds a warning using the given connection or transaction.
func (r *WarningModel) Insert(ctx context.Context, idb bun.IDB, warning *types.Warning) error {
	_, err := idb.NewInsert().Model(warning).Returning("id").Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert warning: %w (userID=%d)", err, warning.UserID)
	}

	return nil
}

// CountActive counts warnings that have not expired at now.
func (r *WarningModel) CountActive(ctx context.Context, idb bun.IDB, userID uint64, now time.Time) (int, error) {
	count, err := idb.NewSelect().Model((*types.Warning)(nil)).
		Where("user_id = ?", userID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("expires_at IS NULL").WhereOr("expires_at > ?", now)
		}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count active warnings: %w (userID=%d)", err, userID)
	}

	return count, nil
}

// ListByUser returns warnings of a user newest first. With activeOnly, expired warnings are left out.
func (r *WarningModel) ListByUser(
	ctx context.Context, userID uint64, activeOnly bool, now time.Time,
) ([]*types.Warning, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Warning, error) {
		var warnings []*types.Warning

		query := r.db.NewSelect().Model(&warnings).
			Where("user_id = ?", userID)
		if activeOnly {
			query = query.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("expires_at IS NULL").WhereOr("expires_at > ?", now)
			})
		}

		err := query.
			Order("issued_at DESC", "id DESC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list warnings: %w (userID=%d)", err, userID)
		}

		return warnings, nil
	})
}

// ExpireAll moves the expiry of every active warning of a user to at. Rows are kept.
func (r *WarningModel) ExpireAll(ctx context.Context, userID uint64, at time.Time) (int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		result, err := r.db.NewUpdate().Model((*types.Warning)(nil)).
			Set("expires_at = ?", at).
			Where("user_id = ?", userID).
			WhereGroup(" AND ", func(q *bun.UpdateQuery) *bun.UpdateQuery {
				return q.Where("expires_at IS NULL").WhereOr("expires_at > ?", at)
			}).
			Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to expire warnings: %w (userID=%d)", err, userID)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}

		return affected, nil
	})
}

// CountByCategorySince groups warnings issued since the given time by category.
func (r *WarningModel) CountByCategorySince(ctx context.Context, since time.Time) ([]types.CategoryCount, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.CategoryCount, error) {
		var counts []types.CategoryCount

		err := r.db.NewSelect().Model((*types.Warning)(nil)).
			ColumnExpr("category").
			ColumnExpr("COUNT(*) AS count").
			Where("issued_at >= ?", since).
			Group("category").
			OrderExpr("count DESC").
			Scan(ctx, &counts)
		if err != nil {
			return nil, fmt.Errorf("failed to count warnings by category: %w", err)
		}

		return counts, nil
	})
}

// ListAfter returns one page of warnings ordered by ID.
func (r *WarningModel) ListAfter(ctx context.Context, afterID int64, limit int) ([]*types.Warning, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Warning, error) {
		var warnings []*types.Warning

		err := r.db.NewSelect().Model(&warnings).
			Where("id > ?", afterID).
			Order("id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list warnings: %w", err)
		}

		return warnings, nil
	})
}
