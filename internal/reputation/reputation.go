// Package reputation computes the community value score of users.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/settings"
	"go.uber.org/zap"
)

// UserStore reads user profiles and counters.
type UserStore interface {
	GetUser(ctx context.Context, userID uint64) (*types.User, error)
}

// ActivityStore aggregates the message history of a user.
type ActivityStore interface {
	Stats(ctx context.Context, userID uint64) (types.ActivityStats, error)
}

// AchievementStore counts unlocked achievements.
type AchievementStore interface {
	Count(ctx context.Context, userID uint64) (int, error)
}

// ScoreStore persists reputation scores and exposes the current trust.
type ScoreStore interface {
	GetTrust(ctx context.Context, userID uint64) (*types.TrustScore, error)
	SaveReputation(ctx context.Context, score *types.ReputationScore) error
	ReputationLeaderboard(ctx context.Context, tier string, limit int) ([]*types.ReputationScore, error)
}

// Scorer computes reputation scores. Unlike trust there is no caching.
type Scorer struct {
	users        UserStore
	activity     ActivityStore
	achievements AchievementStore
	scores       ScoreStore
	settings     settings.Source
	logger       *zap.Logger
	now          func() time.Time
}

// NewScorer creates a Scorer.
func NewScorer(
	users UserStore,
	activity ActivityStore,
	achievements AchievementStore,
	scores ScoreStore,
	source settings.Source,
	logger *zap.Logger,
) *Scorer {
	return &Scorer{
		users:        users,
		activity:     activity,
		achievements: achievements,
		scores:       scores,
		settings:     source,
		logger:       logger.Named("reputation"),
		now:          time.Now,
	}
}

// Recalculate computes and stores the reputation of a user.
func (s *Scorer) Recalculate(ctx context.Context, userID uint64) (*types.ReputationScore, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	activity, err := s.activity.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity stats: %w", err)
	}

	achievements, err := s.achievements.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count achievements: %w", err)
	}

	var trust float64
	current, err := s.scores.GetTrust(ctx, userID)
	switch {
	case err == nil:
		trust = current.Overall
	case !errors.Is(err, types.ErrScoreNotFound):
		return nil, fmt.Errorf("failed to get trust score: %w", err)
	}

	score := Compute(&s.settings.Current().Reputation, Inputs{
		User:         user,
		Activity:     activity,
		Trust:        trust,
		Achievements: achievements,
	}, s.now())

	if err := s.scores.SaveReputation(ctx, score); err != nil {
		return nil, fmt.Errorf("failed to save reputation: %w", err)
	}

	s.logger.Debug("Recalculated reputation",
		zap.Uint64("userID", userID),
		zap.Float64("overall", score.Overall),
		zap.String("tier", score.Tier))

	return score, nil
}

// Leaderboard returns the highest reputation scores.
func (s *Scorer) Leaderboard(ctx context.Context, limit int) ([]*types.ReputationScore, error) {
	return s.scores.ReputationLeaderboard(ctx, "", limit)
}

// ByTier returns the users of one reputation tier, highest first.
func (s *Scorer) ByTier(ctx context.Context, tier string, limit int) ([]*types.ReputationScore, error) {
	return s.scores.ReputationLeaderboard(ctx, tier, limit)
}
