// Package gamification tracks daily activity streaks and awards achievements.
package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/setup/config"
	"go.uber.org/zap"
)

// UserStore persists streaks.
type UserStore interface {
	SaveStreak(ctx context.Context, user *types.User) error
}

// AchievementStore records unlocked achievements. Unlock reports false when already unlocked.
type AchievementStore interface {
	Unlock(ctx context.Context, achievement *types.UserAchievement) (bool, error)
	ListByUser(ctx context.Context, userID uint64) ([]string, error)
}

// achievement is a configured achievement with its parsed rule.
type achievement struct {
	config.Achievement
	rule Rule
}

// Tracker updates streaks and evaluates achievements.
type Tracker struct {
	users        UserStore
	achievements AchievementStore
	rules        []achievement
	logger       *zap.Logger
}

// NewTracker creates a Tracker. Achievements with unknown rules are skipped.
func NewTracker(users UserStore, achievements AchievementStore, defs []config.Achievement, logger *zap.Logger) *Tracker {
	logger = logger.Named("gamification")

	rules := make([]achievement, 0, len(defs))
	for _, def := range defs {
		rule, err := ParseRule(def.Rule, def.Threshold)
		if err != nil {
			logger.Error("Skipping achievement", zap.String("id", def.ID), zap.Error(err))
			continue
		}

		rules = append(rules, achievement{Achievement: def, rule: rule})
	}

	return &Tracker{
		users:        users,
		achievements: achievements,
		rules:        rules,
		logger:       logger,
	}
}

// NextStreak returns the streak after activity at the given time, compared by UTC date.
func NextStreak(user *types.User, at time.Time) (current, longest int) {
	today := at.UTC().Truncate(24 * time.Hour)

	current = 1
	if !user.LastActiveAt.IsZero() {
		last := user.LastActiveAt.UTC().Truncate(24 * time.Hour)

		switch days := int(today.Sub(last) / (24 * time.Hour)); {
		case days <= 0:
			current = max(user.CurrentStreak, 1)
		case days == 1:
			current = user.CurrentStreak + 1
		}
	}

	return current, max(user.LongestStreak, current)
}

// RecordActivity applies a clean message at the given time to the user's streak.
func (t *Tracker) RecordActivity(ctx context.Context, user *types.User, at time.Time) error {
	current, longest := NextStreak(user, at)

	if current == user.CurrentStreak && longest == user.LongestStreak && sameDay(user.LastActiveAt, at) {
		return nil
	}

	user.CurrentStreak = current
	user.LongestStreak = longest
	user.LastActiveAt = at

	if err := t.users.SaveStreak(ctx, user); err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}

	return nil
}

// Evaluate unlocks every achievement the user now satisfies and returns the new ones.
func (t *Tracker) Evaluate(ctx context.Context, user *types.User, at time.Time) ([]config.Achievement, error) {
	var unlocked []config.Achievement

	for _, a := range t.rules {
		if !a.rule.Satisfied(user) {
			continue
		}

		added, err := t.achievements.Unlock(ctx, &types.UserAchievement{
			UserID:        user.ID,
			AchievementID: a.ID,
			UnlockedAt:    at,
		})
		if err != nil {
			return unlocked, fmt.Errorf("failed to unlock achievement %q: %w", a.ID, err)
		}

		if added {
			unlocked = append(unlocked, a.Achievement)

			t.logger.Info("Achievement unlocked",
				zap.Uint64("userID", user.ID),
				zap.String("achievement", a.ID))
		}
	}

	return unlocked, nil
}

// Unlocked returns the achievement IDs a user holds.
func (t *Tracker) Unlocked(ctx context.Context, userID uint64) ([]string, error) {
	return t.achievements.ListByUser(ctx, userID)
}

func sameDay(a, b time.Time) bool {
	return !a.IsZero() && a.UTC().Truncate(24*time.Hour).Equal(b.UTC().Truncate(24*time.Hour))
}
