// Package trust computes and caches per-user trust scores.
package trust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/settings"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UserStore reads user profiles and counters.
type UserStore interface {
	GetUser(ctx context.Context, userID uint64) (*types.User, error)
}

// WarningStore reads the warning ledger.
type WarningStore interface {
	ListByUser(ctx context.Context, userID uint64, activeOnly bool, now time.Time) ([]*types.Warning, error)
}

// ScoreStore persists trust scores and exposes the current reputation.
type ScoreStore interface {
	GetTrust(ctx context.Context, userID uint64) (*types.TrustScore, error)
	SaveTrust(ctx context.Context, score *types.TrustScore) error
	GetReputation(ctx context.Context, userID uint64) (*types.ReputationScore, error)
	TrustLeaderboard(ctx context.Context, limit int) ([]*types.TrustScore, error)
}

// Scorer computes trust scores from stored state.
type Scorer struct {
	users    UserStore
	warnings WarningStore
	scores   ScoreStore
	settings settings.Source
	logger   *zap.Logger
	now      func() time.Time
}

// NewScorer creates a Scorer.
func NewScorer(users UserStore, warnings WarningStore, scores ScoreStore, source settings.Source, logger *zap.Logger) *Scorer {
	return &Scorer{
		users:    users,
		warnings: warnings,
		scores:   scores,
		settings: source,
		logger:   logger.Named("trust"),
		now:      time.Now,
	}
}

// Get returns the cached score when it is fresh and recomputes it otherwise.
func (s *Scorer) Get(ctx context.Context, userID uint64) (*types.TrustScore, error) {
	maxAge := time.Duration(s.settings.Current().Trust.CacheHours) * time.Hour

	cached, err := s.scores.GetTrust(ctx, userID)
	switch {
	case err == nil:
		if cached.IsFresh(s.now(), maxAge) {
			return cached, nil
		}
	case !errors.Is(err, types.ErrScoreNotFound):
		return nil, fmt.Errorf("failed to get cached trust score: %w", err)
	}

	return s.Recalculate(ctx, userID)
}

// Recalculate computes the score from current state and overwrites the cached value.
// Users that were never seen get a computed score that is not stored.
func (s *Scorer) Recalculate(ctx context.Context, userID uint64) (*types.TrustScore, error) {
	cfg := s.settings.Current()
	now := s.now()

	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, types.ErrUserNotFound) {
		return Compute(&cfg.Trust, Inputs{User: &types.User{ID: userID}}, now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Expired and reset warnings keep their decayed penalty
	warnings, err := s.warnings.ListByUser(ctx, userID, false, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list warnings: %w", err)
	}

	var reputation float64
	rep, err := s.scores.GetReputation(ctx, userID)
	switch {
	case err == nil:
		reputation = rep.Overall
	case !errors.Is(err, types.ErrScoreNotFound):
		return nil, fmt.Errorf("failed to get reputation: %w", err)
	}

	score := Compute(&cfg.Trust, Inputs{
		User:       user,
		Warnings:   warnings,
		Reputation: reputation,
	}, now)

	if err := s.scores.SaveTrust(ctx, score); err != nil {
		return nil, fmt.Errorf("failed to save trust score: %w", err)
	}

	s.logger.Debug("Recalculated trust score",
		zap.Uint64("userID", userID),
		zap.Float64("overall", score.Overall),
		zap.String("tier", score.Tier),
		zap.Int("warnings", len(warnings)))

	return score, nil
}

// RecalculateAll forces recomputation for every user, at most concurrency at a time.
// It returns the number of scores computed before the first error.
func (s *Scorer) RecalculateAll(ctx context.Context, userIDs []uint64, concurrency int) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	results := make([]bool, len(userIDs))
	for i, userID := range userIDs {
		g.Go(func() error {
			if _, err := s.Recalculate(ctx, userID); err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}
			results[i] = true
			return nil
		})
	}

	err := g.Wait()

	done := 0
	for _, ok := range results {
		if ok {
			done++
		}
	}

	return done, err
}

// Refresh recomputes a user's score only when the cache is stale.
func (s *Scorer) Refresh(ctx context.Context, userIDs []uint64, concurrency int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for _, userID := range userIDs {
		g.Go(func() error {
			_, err := s.Get(ctx, userID)
			return err
		})
	}

	return g.Wait()
}

// Leaderboard returns the highest trust scores.
func (s *Scorer) Leaderboard(ctx context.Context, limit int) ([]*types.TrustScore, error) {
	return s.scores.TrustLeaderboard(ctx, limit)
}
