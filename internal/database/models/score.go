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

// ScoreModel handles cached trust and reputation scores.
type ScoreModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewScore creates a ScoreModel.
func NewScore(db *bun.DB, logger *zap.Logger) *ScoreModel {
	return &ScoreModel{
		db:     db,
		logger: logger.Named("db_score"),
	}
}

// GetTrust retrieves the cached trust score. Returns types.ErrScoreNotFound if none was computed.
func (r *ScoreModel) GetTrust(ctx context.Context, userID uint64) (*types.TrustScore, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.TrustScore, error) {
		score := new(types.TrustScore)

		err := r.db.NewSelect().Model(score).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrScoreNotFound
			}

			return nil, fmt.Errorf("failed to get trust score: %w (userID=%d)", err, userID)
		}

		return score, nil
	})
}

// SaveTrust overwrites the cached trust score.
func (r *ScoreModel) SaveTrust(ctx context.Context, score *types.TrustScore) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(score).
			On("CONFLICT (user_id) DO UPDATE").
			Set("overall = EXCLUDED.overall").
			Set("tier = EXCLUDED.tier").
			Set("component_account_age = EXCLUDED.component_account_age").
			Set("component_server_age = EXCLUDED.component_server_age").
			Set("component_message_count = EXCLUDED.component_message_count").
			Set("component_message_quality = EXCLUDED.component_message_quality").
			Set("component_consistency = EXCLUDED.component_consistency").
			Set("component_warning_penalty = EXCLUDED.component_warning_penalty").
			Set("component_reputation = EXCLUDED.component_reputation").
			Set("calculated_at = EXCLUDED.calculated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save trust score: %w (userID=%d)", err, score.UserID)
		}

		return nil
	})
}

// GetReputation retrieves the cached reputation score. Returns types.ErrScoreNotFound if none was computed.
func (r *ScoreModel) GetReputation(ctx context.Context, userID uint64) (*types.ReputationScore, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ReputationScore, error) {
		score := new(types.ReputationScore)

		err := r.db.NewSelect().Model(score).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrScoreNotFound
			}

			return nil, fmt.Errorf("failed to get reputation score: %w (userID=%d)", err, userID)
		}

		return score, nil
	})
}

// SaveReputation overwrites the cached reputation score.
func (r *ScoreModel) SaveReputation(ctx context.Context, score *types.ReputationScore) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(score).
			On("CONFLICT (user_id) DO UPDATE").
			Set("overall = EXCLUDED.overall").
			Set("tier = EXCLUDED.tier").
			Set("component_expertise = EXCLUDED.component_expertise").
			Set("component_collaboration = EXCLUDED.component_collaboration").
			Set("component_consistency = EXCLUDED.component_consistency").
			Set("component_leadership = EXCLUDED.component_leadership").
			Set("calculated_at = EXCLUDED.calculated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save reputation score: %w (userID=%d)", err, score.UserID)
		}

		return nil
	})
}

// TrustLeaderboard returns the highest trust scores.
func (r *ScoreModel) TrustLeaderboard(ctx context.Context, limit int) ([]*types.TrustScore, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.TrustScore, error) {
		var scores []*types.TrustScore

		err := r.db.NewSelect().Model(&scores).
			Order("overall DESC", "user_id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get trust leaderboard: %w", err)
		}

		return scores, nil
	})
}

// ReputationLeaderboard returns the highest reputation scores, optionally limited to one tier.
func (r *ScoreModel) ReputationLeaderboard(
	ctx context.Context, tier string, limit int,
) ([]*types.ReputationScore, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ReputationScore, error) {
		var scores []*types.ReputationScore

		query := r.db.NewSelect().Model(&scores)
		if tier != "" {
			query = query.Where("tier = ?", tier)
		}

		err := query.
			Order("overall DESC", "user_id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get reputation leaderboard: %w", err)
		}

		return scores, nil
	})
}

// ListStaleTrust returns users seen since activeSince whose trust score is missing
// or was computed before staleBefore, ordered by ID and starting after afterID.
func (r *ScoreModel) ListStaleTrust(
	ctx context.Context, activeSince, staleBefore time.Time, afterID uint64, limit int,
) ([]uint64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]uint64, error) {
		var ids []uint64

		err := r.db.NewSelect().
			TableExpr("users AS u").
			ColumnExpr("u.id").
			Join("LEFT JOIN trust_scores AS ts ON ts.user_id = u.id").
			Where("u.last_seen >= ?", activeSince).
			Where("u.id > ?", afterID).
			Where("u.is_banned = false").
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("ts.user_id IS NULL").WhereOr("ts.calculated_at < ?", staleBefore)
			}).
			OrderExpr("u.id ASC").
			Limit(limit).
			Scan(ctx, &ids)
		if err != nil {
			return nil, fmt.Errorf("failed to list stale trust scores: %w", err)
		}

		return ids, nil
	})
}

// ListTrustAfter returns one page of trust scores ordered by user ID.
func (r *ScoreModel) ListTrustAfter(ctx context.Context, afterID uint64, limit int) ([]*types.TrustScore, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.TrustScore, error) {
		var scores []*types.TrustScore

		err := r.db.NewSelect().Model(&scores).
			Where("user_id > ?", afterID).
			Order("user_id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list trust scores: %w", err)
		}

		return scores, nil
	})
}

// ListReputationAfter returns one page of reputation scores ordered by user ID.
func (r *ScoreModel) ListReputationAfter(
	ctx context.Context, afterID uint64, limit int,
) ([]*types.ReputationScore, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ReputationScore, error) {
		var scores []*types.ReputationScore

		err := r.db.NewSelect().Model(&scores).
			Where("user_id > ?", afterID).
			Order("user_id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list reputation scores: %w", err)
		}

		return scores, nil
	})
}
