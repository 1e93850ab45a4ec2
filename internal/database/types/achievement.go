package types

import (
	"time"
)

// UserAchievement records an unlocked achievement. Unique per user and achievement.
type UserAchievement struct {
	UserID        uint64    `bun:",pk"`
	AchievementID string    `bun:",pk"`
	UnlockedAt    time.Time `bun:",notnull"`
}
