package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// EventModel handles the append-only message event log.
type EventModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewEvent creates an EventModel.
func NewEvent(db *bun.DB, logger *zap.Logger) *EventModel {
	return &EventModel{
		db:     db,
		logger: logger.Named("db_event"),
	}
}

// Record appends a message event. Redelivered events are ignored.
func (r *EventModel) Record(ctx context.Context, event *types.MessageEvent) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(event).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to record event: %w (messageID=%d)", err, event.ID)
		}

		return nil
	})
}

// CountSince counts a user's undeleted events created at or after since.
func (r *EventModel) CountSince(ctx context.Context, userID uint64, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().Model((*types.MessageEvent)(nil)).
			Where("user_id = ?", userID).
			Where("created_at >= ?", since).
			Where("deleted = false").
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count recent events: %w (userID=%d)", err, userID)
		}

		return count, nil
	})
}

// CountByHashSince counts a user's undeleted events with the given content hash.
func (r *EventModel) CountByHashSince(
	ctx context.Context, userID uint64, hash string, since time.Time,
) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().Model((*types.MessageEvent)(nil)).
			Where("user_id = ?", userID).
			Where("content_hash = ?", hash).
			Where("created_at >= ?", since).
			Where("deleted = false").
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count duplicate events: %w (userID=%d)", err, userID)
		}

		return count, nil
	})
}

// CountChannelsByHashSince counts distinct channels other than excludeChannel where
// the user posted the given content hash.
func (r *EventModel) CountChannelsByHashSince(
	ctx context.Context, userID uint64, hash string, since time.Time, excludeChannel uint64,
) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		var count int

		err := r.db.NewSelect().Model((*types.MessageEvent)(nil)).
			ColumnExpr("COUNT(DISTINCT channel_id)").
			Where("user_id = ?", userID).
			Where("content_hash = ?", hash).
			Where("created_at >= ?", since).
			Where("channel_id != ?", excludeChannel).
			Where("deleted = false").
			Scan(ctx, &count)
		if err != nil {
			return 0, fmt.Errorf("failed to count cross-channel events: %w (userID=%d)", err, userID)
		}

		return count, nil
	})
}

// MarkSpam flags an event as spam and optionally as deleted.
func (r *EventModel) MarkSpam(ctx context.Context, messageID uint64, deleted bool) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewUpdate().Model((*types.MessageEvent)(nil)).
			Set("flagged_as_spam = true").
			Set("deleted = ?", deleted).
			Where("id = ?", messageID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark event as spam: %w (messageID=%d)", err, messageID)
		}

		return nil
	})
}

// AdjustReactions changes the reaction count of an event, never below zero, and returns its author.
// The author is zero when the event is unknown, for example after retention cleanup.
func (r *EventModel) AdjustReactions(ctx context.Context, messageID uint64, delta int) (uint64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (uint64, error) {
		var authorID uint64

		err := r.db.NewUpdate().Model((*types.MessageEvent)(nil)).
			Set("reaction_count = GREATEST(reaction_count + ?, 0)", delta).
			Where("id = ?", messageID).
			Returning("user_id").
			Scan(ctx, &authorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, nil
			}

			return 0, fmt.Errorf("failed to adjust reactions: %w (messageID=%d)", err, messageID)
		}

		return authorID, nil
	})
}

// DeleteBefore removes events older than cutoff and returns how many were removed.
func (r *EventModel) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		result, err := r.db.NewDelete().Model((*types.MessageEvent)(nil)).
			Where("created_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to delete old events: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}

		return affected, nil
	})
}
