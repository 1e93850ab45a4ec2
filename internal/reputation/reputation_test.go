package reputation_test

import (
	"context"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/reputation"
	"github.com/robalyx/sentinel/internal/settings"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestExpertise(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		user     *types.User
		activity types.ActivityStats
		want     float64
	}{
		{name: "silent", user: &types.User{}, want: 0},
		{
			name:     "capped",
			user:     &types.User{TotalMessages: 100, ReactionsReceived: 60},
			activity: types.ActivityStats{HighValueMessages: 40, TopChannelMessages: 80},
			want:     100,
		},
		{
			name:     "partial",
			user:     &types.User{TotalMessages: 100, ReactionsReceived: 15},
			activity: types.ActivityStats{HighValueMessages: 10, TopChannelMessages: 25},
			want:     20 + 15 + 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, reputation.Expertise(tt.user, tt.activity), 1e-9)
		})
	}
}

func TestCollaboration(t *testing.T) {
	t.Parallel()

	user := &types.User{VoiceMinutes: 150, ReactionsGiven: 200}
	got := reputation.Collaboration(user, types.ActivityStats{ActiveChannels: 2})

	assert.InDelta(t, 16+15+30, got, 1e-9)
}

func TestConsistency(t *testing.T) {
	t.Parallel()

	user := &types.User{
		CurrentStreak: 15,
		LongestStreak: 120,
		JoinedAt:      now.Add(-45 * 24 * time.Hour),
	}

	assert.InDelta(t, 25+30+10, reputation.Consistency(user, now), 1e-9)
}

func TestLeadership(t *testing.T) {
	t.Parallel()

	tests := []struct {
		trust float64
		want  float64
	}{
		{trust: 0, want: 20 + 0 + 12},
		{trust: 60, want: 20 + 20 + 12},
		{trust: 79.9, want: 20 + 20 + 12},
		{trust: 80, want: 20 + 30 + 12},
	}

	user := &types.User{TotalMessages: 250}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, reputation.Leadership(user, tt.trust, 2), 1e-9, "trust=%v", tt.trust)
	}
}

func TestComputeTiers(t *testing.T) {
	t.Parallel()

	cfg := &config.WithListDefaults().Reputation

	empty := reputation.Compute(cfg, reputation.Inputs{User: &types.User{ID: 1}}, now)
	assert.InDelta(t, 0, empty.Overall, 1e-9)
	assert.Equal(t, "bronze", empty.Tier)

	full := reputation.Compute(cfg, reputation.Inputs{
		User: &types.User{
			ID:                2,
			TotalMessages:     1000,
			ReactionsReceived: 500,
			ReactionsGiven:    500,
			VoiceMinutes:      1000,
			CurrentStreak:     60,
			LongestStreak:     90,
			JoinedAt:          now.Add(-200 * 24 * time.Hour),
		},
		Activity:     types.ActivityStats{HighValueMessages: 50, TopChannelMessages: 600, ActiveChannels: 8},
		Trust:        90,
		Achievements: 5,
	}, now)
	assert.InDelta(t, 100, full.Overall, 1e-9)
	assert.Equal(t, "platinum", full.Tier)
	assert.Equal(t, now, full.CalculatedAt)
}

type store struct {
	user  *types.User
	trust *types.TrustScore
	saved *types.ReputationScore
	tier  string
}

func (s *store) GetUser(context.Context, uint64) (*types.User, error) {
	if s.user == nil {
		return nil, types.ErrUserNotFound
	}
	return s.user, nil
}

func (s *store) Stats(context.Context, uint64) (types.ActivityStats, error) {
	return types.ActivityStats{ActiveChannels: 5}, nil
}

func (s *store) Count(context.Context, uint64) (int, error) {
	return 5, nil
}

func (s *store) GetTrust(context.Context, uint64) (*types.TrustScore, error) {
	if s.trust == nil {
		return nil, types.ErrScoreNotFound
	}
	return s.trust, nil
}

func (s *store) SaveReputation(_ context.Context, score *types.ReputationScore) error {
	s.saved = score
	return nil
}

func (s *store) ReputationLeaderboard(_ context.Context, tier string, _ int) ([]*types.ReputationScore, error) {
	s.tier = tier
	if s.saved == nil {
		return nil, nil
	}
	return []*types.ReputationScore{s.saved}, nil
}

func newScorer(s *store) *reputation.Scorer {
	scorer := reputation.NewScorer(s, s, s, s, settings.Static(config.WithListDefaults()), zap.NewNop())
	scorer.SetClock(func() time.Time { return now })
	return scorer
}

func TestScorerRecalculate(t *testing.T) {
	t.Parallel()

	s := &store{user: &types.User{ID: 7}}

	score, err := newScorer(s).Recalculate(t.Context(), 7)
	require.NoError(t, err)
	require.Same(t, score, s.saved)
	assert.InDelta(t, 40, score.Components.Collaboration, 1e-9)
	assert.InDelta(t, 30, score.Components.Leadership, 1e-9)

	s.trust = &types.TrustScore{UserID: 7, Overall: 85}

	score, err = newScorer(s).Recalculate(t.Context(), 7)
	require.NoError(t, err)
	assert.InDelta(t, 60, score.Components.Leadership, 1e-9)
}

func TestScorerRecalculateUnknownUser(t *testing.T) {
	t.Parallel()

	_, err := newScorer(&store{}).Recalculate(t.Context(), 7)
	require.ErrorIs(t, err, types.ErrUserNotFound)
}

func TestScorerLeaderboards(t *testing.T) {
	t.Parallel()

	s := &store{user: &types.User{ID: 7}}
	scorer := newScorer(s)

	_, err := scorer.Recalculate(t.Context(), 7)
	require.NoError(t, err)

	top, err := scorer.Leaderboard(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, top, 1)
	assert.Empty(t, s.tier)

	_, err = scorer.ByTier(t.Context(), "gold", 10)
	require.NoError(t, err)
	assert.Equal(t, "gold", s.tier)
}
