package trust_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/robalyx/sentinel/internal/settings"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type store struct {
	mu         sync.Mutex
	users      map[uint64]*types.User
	warnings   map[uint64][]*types.Warning
	trust      map[uint64]*types.TrustScore
	reputation map[uint64]*types.ReputationScore
	saves      int
	failUser   uint64
}

func newStore() *store {
	return &store{
		users:      make(map[uint64]*types.User),
		warnings:   make(map[uint64][]*types.Warning),
		trust:      make(map[uint64]*types.TrustScore),
		reputation: make(map[uint64]*types.ReputationScore),
	}
}

func (s *store) GetUser(_ context.Context, userID uint64) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == s.failUser && userID != 0 {
		return nil, errors.New("connection refused")
	}

	user, ok := s.users[userID]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return user, nil
}

func (s *store) ListByUser(_ context.Context, userID uint64, activeOnly bool, at time.Time) ([]*types.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*types.Warning
	for _, w := range s.warnings[userID] {
		if !activeOnly || w.IsActive(at) {
			result = append(result, w)
		}
	}
	return result, nil
}

func (s *store) GetTrust(_ context.Context, userID uint64) (*types.TrustScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, ok := s.trust[userID]
	if !ok {
		return nil, types.ErrScoreNotFound
	}
	return score, nil
}

func (s *store) SaveTrust(_ context.Context, score *types.TrustScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trust[score.UserID] = score
	s.saves++
	return nil
}

func (s *store) GetReputation(_ context.Context, userID uint64) (*types.ReputationScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, ok := s.reputation[userID]
	if !ok {
		return nil, types.ErrScoreNotFound
	}
	return score, nil
}

func (s *store) TrustLeaderboard(_ context.Context, limit int) ([]*types.TrustScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*types.TrustScore, 0, limit)
	for _, score := range s.trust {
		if len(result) == limit {
			break
		}
		result = append(result, score)
	}
	return result, nil
}

func newScorer(s *store) *trust.Scorer {
	scorer := trust.NewScorer(s, s, s, settings.Static(config.WithListDefaults()), zap.NewNop())
	scorer.SetClock(func() time.Time { return now })
	return scorer
}

func veteran(id uint64) *types.User {
	return &types.User{
		ID:                id,
		CreatedAt:         daysAgo(400),
		JoinedAt:          daysAgo(100),
		TotalMessages:     600,
		ReactionsReceived: 90,
		CurrentStreak:     40,
	}
}

func TestScorerGetUsesFreshCache(t *testing.T) {
	t.Parallel()

	s := newStore()
	s.users[1] = veteran(1)
	s.trust[1] = &types.TrustScore{UserID: 1, Overall: 12, CalculatedAt: now.Add(-time.Hour)}

	score, err := newScorer(s).Get(t.Context(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 12, score.Overall, 1e-9)
	assert.Zero(t, s.saves)
}

func TestScorerGetRecomputesStaleCache(t *testing.T) {
	t.Parallel()

	s := newStore()
	s.users[1] = veteran(1)
	s.trust[1] = &types.TrustScore{UserID: 1, Overall: 12, CalculatedAt: now.Add(-25 * time.Hour)}

	score, err := newScorer(s).Get(t.Context(), 1)
	require.NoError(t, err)
	assert.Greater(t, score.Overall, 12.0)
	assert.Equal(t, now, score.CalculatedAt)
	assert.Equal(t, 1, s.saves)
}

func TestScorerRecalculate(t *testing.T) {
	t.Parallel()

	s := newStore()
	s.users[1] = veteran(1)
	s.reputation[1] = &types.ReputationScore{UserID: 1, Overall: 50}

	scorer := newScorer(s)

	before, err := scorer.Recalculate(t.Context(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 50, before.Components.Reputation, 1e-9)

	s.warnings[1] = []*types.Warning{{UserID: 1, Severity: enum.SeverityHigh, IssuedAt: now.Add(-time.Hour)}}

	after, err := scorer.Recalculate(t.Context(), 1)
	require.NoError(t, err)
	assert.Less(t, after.Overall, before.Overall)
	assert.InDelta(t, -30, after.Components.WarningPenalty, 1e-9)

	// An expired warning still carries its penalty
	expired := now.Add(-time.Minute)
	s.warnings[1][0].ExpiresAt = &expired

	reset, err := scorer.Recalculate(t.Context(), 1)
	require.NoError(t, err)
	assert.InDelta(t, -30, reset.Components.WarningPenalty, 1e-9)
	assert.InDelta(t, after.Overall, reset.Overall, 1e-9)

	delete(s.warnings, 1)

	restored, err := scorer.Recalculate(t.Context(), 1)
	require.NoError(t, err)
	assert.InDelta(t, before.Overall, restored.Overall, 1e-9)
	assert.Equal(t, 4, s.saves)
}

func TestScorerUnknownUser(t *testing.T) {
	t.Parallel()

	s := newStore()

	score, err := newScorer(s).Recalculate(t.Context(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), score.UserID)
	assert.InDelta(t, 0, score.Overall, 1e-9)
	assert.Equal(t, "new", score.Tier)
	assert.Zero(t, s.saves)
}

func TestScorerRecalculateAll(t *testing.T) {
	t.Parallel()

	s := newStore()
	ids := []uint64{1, 2, 3, 4, 5}
	for _, id := range ids {
		s.users[id] = veteran(id)
	}

	done, err := newScorer(s).RecalculateAll(t.Context(), ids, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, done)
	assert.Len(t, s.trust, 5)

	s.failUser = 3

	_, err = newScorer(s).RecalculateAll(t.Context(), ids, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user 3")
}
