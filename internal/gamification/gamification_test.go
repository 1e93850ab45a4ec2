package gamification_test

import (
	"context"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/gamification"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var day = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func TestNextStreak(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		user        types.User
		wantCurrent int
		wantLongest int
	}{
		{name: "first activity", user: types.User{}, wantCurrent: 1, wantLongest: 1},
		{
			name:        "same day",
			user:        types.User{LastActiveAt: day.Add(-5 * time.Hour), CurrentStreak: 4, LongestStreak: 9},
			wantCurrent: 4, wantLongest: 9,
		},
		{
			name:        "yesterday late",
			user:        types.User{LastActiveAt: time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC), CurrentStreak: 4, LongestStreak: 4},
			wantCurrent: 5, wantLongest: 5,
		},
		{
			name:        "gap",
			user:        types.User{LastActiveAt: day.Add(-72 * time.Hour), CurrentStreak: 12, LongestStreak: 20},
			wantCurrent: 1, wantLongest: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current, longest := gamification.NextStreak(&tt.user, day)
			assert.Equal(t, tt.wantCurrent, current)
			assert.Equal(t, tt.wantLongest, longest)
		})
	}
}

func TestParseRule(t *testing.T) {
	t.Parallel()

	rule, err := gamification.ParseRule("voice_minutes_at_least", 600)
	require.NoError(t, err)
	assert.True(t, rule.Satisfied(&types.User{VoiceMinutes: 600}))
	assert.False(t, rule.Satisfied(&types.User{VoiceMinutes: 599}))

	_, err = gamification.ParseRule("levels_at_least", 3)
	require.ErrorIs(t, err, gamification.ErrUnknownRule)
}

func TestRuleSatisfied(t *testing.T) {
	t.Parallel()

	user := &types.User{
		TotalMessages:     100,
		ReactionsReceived: 5,
		ReactionsGiven:    50,
		CurrentStreak:     2,
		LongestStreak:     31,
	}

	tests := []struct {
		rule gamification.Rule
		want bool
	}{
		{gamification.Rule{Kind: gamification.RuleMessageCountAtLeast, Threshold: 100}, true},
		{gamification.Rule{Kind: gamification.RuleMessageCountAtLeast, Threshold: 101}, false},
		{gamification.Rule{Kind: gamification.RuleStreakAtLeast, Threshold: 30}, true},
		{gamification.Rule{Kind: gamification.RuleReactionsReceivedAtLeast, Threshold: 100}, false},
		{gamification.Rule{Kind: gamification.RuleReactionsGivenAtLeast, Threshold: 50}, true},
		{gamification.Rule{Kind: "unknown", Threshold: 0}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.rule.Satisfied(user), string(tt.rule.Kind))
	}
}

type store struct {
	saved    int
	unlocked map[string]bool
}

func (s *store) SaveStreak(context.Context, *types.User) error {
	s.saved++
	return nil
}

func (s *store) Unlock(_ context.Context, a *types.UserAchievement) (bool, error) {
	if s.unlocked[a.AchievementID] {
		return false, nil
	}
	s.unlocked[a.AchievementID] = true
	return true, nil
}

func (s *store) ListByUser(context.Context, uint64) ([]string, error) {
	ids := make([]string, 0, len(s.unlocked))
	for id := range s.unlocked {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestTrackerRecordActivity(t *testing.T) {
	t.Parallel()

	s := &store{unlocked: make(map[string]bool)}
	tracker := gamification.NewTracker(s, s, nil, zap.NewNop())

	user := &types.User{ID: 1}

	require.NoError(t, tracker.RecordActivity(t.Context(), user, day))
	require.NoError(t, tracker.RecordActivity(t.Context(), user, day.Add(time.Hour)))
	require.NoError(t, tracker.RecordActivity(t.Context(), user, day.Add(24*time.Hour)))

	assert.Equal(t, 2, user.CurrentStreak)
	assert.Equal(t, 2, user.LongestStreak)
	assert.Equal(t, 2, s.saved)
}

func TestTrackerEvaluate(t *testing.T) {
	t.Parallel()

	s := &store{unlocked: make(map[string]bool)}
	defs := append(config.WithListDefaults().Achievements, config.Achievement{ID: "bogus", Rule: "nope", Threshold: 1})
	tracker := gamification.NewTracker(s, s, defs, zap.NewNop())

	user := &types.User{ID: 1, TotalMessages: 1}

	unlocked, err := tracker.Evaluate(t.Context(), user, day)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_message", unlocked[0].ID)

	unlocked, err = tracker.Evaluate(t.Context(), user, day)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	user.TotalMessages = 150
	user.VoiceMinutes = 700

	unlocked, err = tracker.Evaluate(t.Context(), user, day)
	require.NoError(t, err)
	assert.Len(t, unlocked, 2)

	ids, err := tracker.Unlocked(t.Context(), 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first_message", "century", "voice_active"}, ids)
}
