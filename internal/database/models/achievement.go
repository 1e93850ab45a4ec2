package models

import (
	"context"
	"fmt"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// AchievementModel handles unlocked achievements.
type AchievementModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAchievement creates an AchievementModel.
func NewAchievement(db *bun.DB, logger *zap.Logger) *AchievementModel {
	return &AchievementModel{
		db:     db,
		logger: logger.Named("db_achievement"),
	}
}

// Unlock awards an achievement. It reports false if the user already had it.
func (r *AchievementModel) Unlock(ctx context.Context, achievement *types.UserAchievement) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := r.db.NewInsert().Model(achievement).
			On("CONFLICT (user_id, achievement_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to unlock achievement: %w (userID=%d, achievement=%s)",
				err, achievement.UserID, achievement.AchievementID)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get affected rows: %w", err)
		}

		return affected > 0, nil
	})
}

// ListByUser returns the IDs of achievements a user has unlocked.
func (r *AchievementModel) ListByUser(ctx context.Context, userID uint64) ([]string, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]string, error) {
		var ids []string

		err := r.db.NewSelect().Model((*types.UserAchievement)(nil)).
			Column("achievement_id").
			Where("user_id = ?", userID).
			Order("unlocked_at ASC").
			Scan(ctx, &ids)
		if err != nil {
			return nil, fmt.Errorf("failed to list achievements: %w (userID=%d)", err, userID)
		}

		return ids, nil
	})
}

// Count returns how many achievements a user has unlocked.
func (r *AchievementModel) Count(ctx context.Context, userID uint64) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().Model((*types.UserAchievement)(nil)).
			Where("user_id = ?", userID).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count achievements: %w (userID=%d)", err, userID)
		}

		return count, nil
	})
}
