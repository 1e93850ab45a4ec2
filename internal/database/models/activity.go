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

const (
	// HighValueReactions is the reaction count at which a message counts as high value.
	HighValueReactions = 3
	// DiversityMinimum is the message count a channel needs to count toward diversity.
	DiversityMinimum = 5
)

// ActivityModel handles per-channel message counters and the aggregates derived from them.
type ActivityModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewActivity creates an ActivityModel.
func NewActivity(db *bun.DB, logger *zap.Logger) *ActivityModel {
	return &ActivityModel{
		db:     db,
		logger: logger.Named("db_activity"),
	}
}

// RecordMessage counts a clean message for the user and its channel.
func (r *ActivityModel) RecordMessage(ctx context.Context, userID, channelID uint64, at time.Time) error {
	return dbretry.Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model((*types.User)(nil)).
			Set("total_messages = total_messages + 1").
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to increment messages: %w (userID=%d)", err, userID)
		}

		activity := &types.ChannelActivity{
			UserID:       userID,
			ChannelID:    channelID,
			MessageCount: 1,
			LastMessage:  at,
		}

		_, err = tx.NewInsert().Model(activity).
			On("CONFLICT (user_id, channel_id) DO UPDATE").
			Set("message_count = ?TableAlias.message_count + 1").
			Set("last_message = EXCLUDED.last_message").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update channel activity: %w (userID=%d)", err, userID)
		}

		return nil
	})
}

// Stats computes the event-derived aggregates for the reputation scorer.
func (r *ActivityModel) Stats(ctx context.Context, userID uint64) (types.ActivityStats, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (types.ActivityStats, error) {
		var stats types.ActivityStats

		highValue, err := r.db.NewSelect().Model((*types.MessageEvent)(nil)).
			Where("user_id = ?", userID).
			Where("reaction_count >= ?", HighValueReactions).
			Where("deleted = false").
			Count(ctx)
		if err != nil {
			return stats, fmt.Errorf("failed to count high value messages: %w (userID=%d)", err, userID)
		}

		stats.HighValueMessages = int64(highValue)

		err = r.db.NewSelect().Model((*types.ChannelActivity)(nil)).
			ColumnExpr("COALESCE(MAX(message_count), 0)").
			ColumnExpr("COUNT(*) FILTER (WHERE message_count > ?)", DiversityMinimum).
			Where("user_id = ?", userID).
			Scan(ctx, &stats.TopChannelMessages, &stats.ActiveChannels)
		if err != nil {
			return stats, fmt.Errorf("failed to aggregate channel activity: %w (userID=%d)", err, userID)
		}

		return stats, nil
	})
}
