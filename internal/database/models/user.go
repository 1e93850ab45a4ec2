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

// UserModel handles database operations for community members.
type UserModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUser creates a UserModel.
func NewUser(db *bun.DB, logger *zap.Logger) *UserModel {
	return &UserModel{
		db:     db,
		logger: logger.Named("db_user"),
	}
}

// Touch creates the user on first sight or refreshes its identity fields, and returns the stored row.
// A zero JoinedAt in the profile keeps the stored join time.
func (r *UserModel) Touch(ctx context.Context, profile types.Profile, seenAt time.Time) (*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.User, error) {
		user := &types.User{
			ID:        profile.UserID,
			Username:  profile.Username,
			CreatedAt: profile.CreatedAt,
			JoinedAt:  profile.JoinedAt,
			FirstSeen: seenAt,
			LastSeen:  seenAt,
		}

		_, err := r.db.NewInsert().Model(user).
			On("CONFLICT (id) DO UPDATE").
			Set("username = CASE WHEN EXCLUDED.username = '' THEN ?TableAlias.username ELSE EXCLUDED.username END").
			Set("joined_at = COALESCE(EXCLUDED.joined_at, ?TableAlias.joined_at)").
			Set("last_seen = GREATEST(EXCLUDED.last_seen, ?TableAlias.last_seen)").
			Returning("*").
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to touch user: %w (userID=%d)", err, profile.UserID)
		}

		return user, nil
	})
}

// GetUser retrieves a user by ID.
func (r *UserModel) GetUser(ctx context.Context, userID uint64) (*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.User, error) {
		user := new(types.User)

		err := r.db.NewSelect().Model(user).
			Where("id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrUserNotFound
			}

			return nil, fmt.Errorf("failed to get user: %w (userID=%d)", err, userID)
		}

		return user, nil
	})
}

// SaveStreak stores the streak fields of a user.
func (r *UserModel) SaveStreak(ctx context.Context, user *types.User) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewUpdate().Model(user).
			Column("last_active_at", "current_streak", "longest_streak").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save streak: %w (userID=%d)", err, user.ID)
		}

		return nil
	})
}

// AddReactions credits a reaction to the giver and, when known, the message author.
func (r *UserModel) AddReactions(ctx context.Context, giverID, receiverID uint64, delta int64) error {
	return dbretry.Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model((*types.User)(nil)).
			Set("reactions_given = GREATEST(reactions_given + ?, 0)", delta).
			Where("id = ?", giverID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update reactions given: %w (userID=%d)", err, giverID)
		}

		if receiverID == 0 || receiverID == giverID {
			return nil
		}

		_, err = tx.NewUpdate().Model((*types.User)(nil)).
			Set("reactions_received = GREATEST(reactions_received + ?, 0)", delta).
			Where("id = ?", receiverID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update reactions received: %w (userID=%d)", err, receiverID)
		}

		return nil
	})
}

// AddVoiceMinutes adds the length of a finished voice session.
func (r *UserModel) AddVoiceMinutes(ctx context.Context, userID uint64, minutes int64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewUpdate().Model((*types.User)(nil)).
			Set("voice_minutes = voice_minutes + ?", minutes).
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add voice minutes: %w (userID=%d)", err, userID)
		}

		return nil
	})
}

// MarkBanned sets the soft ban flag.
func (r *UserModel) MarkBanned(ctx context.Context, userID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewUpdate().Model((*types.User)(nil)).
			Set("is_banned = true").
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark user banned: %w (userID=%d)", err, userID)
		}

		return nil
	})
}

// ListAfter returns one page of users ordered by ID.
func (r *UserModel) ListAfter(ctx context.Context, afterID uint64, limit int) ([]*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.User, error) {
		var users []*types.User

		err := r.db.NewSelect().Model(&users).
			Where("id > ?", afterID).
			Order("id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		return users, nil
	})
}
