package reputation

import (
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/setup/config"
)

// Inputs is the stored state a reputation score is computed from.
type Inputs struct {
	User         *types.User
	Activity     types.ActivityStats
	Trust        float64 // Current overall trust
	Achievements int
}

// Compute derives a reputation score from inputs at now. It has no side effects.
func Compute(cfg *config.Reputation, in Inputs, now time.Time) *types.ReputationScore {
	components := types.ReputationComponents{
		Expertise:     Expertise(in.User, in.Activity),
		Collaboration: Collaboration(in.User, in.Activity),
		Consistency:   Consistency(in.User, now),
		Leadership:    Leadership(in.User, in.Trust, in.Achievements),
	}

	w := cfg.Weights
	overall := components.Expertise*w.Expertise +
		components.Collaboration*w.Collaboration +
		components.Consistency*w.Consistency +
		components.Leadership*w.Leadership
	overall = min(100, max(0, overall))

	return &types.ReputationScore{
		UserID:       in.User.ID,
		Overall:      overall,
		Tier:         cfg.Tiers.Resolve(overall),
		Components:   components,
		CalculatedAt: now,
	}
}

// Expertise rewards well received messages concentrated in one channel.
func Expertise(user *types.User, activity types.ActivityStats) float64 {
	if user.TotalMessages <= 0 {
		return scaled(float64(activity.HighValueMessages), 20, 30)
	}

	messages := float64(user.TotalMessages)
	ratio := float64(user.ReactionsReceived) / messages

	return scaled(ratio, 0.3, 40) +
		scaled(float64(activity.HighValueMessages), 20, 30) +
		min(30, float64(activity.TopChannelMessages)/messages*60)
}

// Collaboration rewards breadth across channels, voice time and reactions given.
func Collaboration(user *types.User, activity types.ActivityStats) float64 {
	return scaled(float64(activity.ActiveChannels), 5, 40) +
		scaled(float64(user.VoiceMinutes), 300, 30) +
		scaled(float64(user.ReactionsGiven), 100, 30)
}

// Consistency rewards the current streak, the best streak and tenure.
func Consistency(user *types.User, now time.Time) float64 {
	tenure := float64(user.ServerAge(now) / (24 * time.Hour))

	return scaled(float64(user.CurrentStreak), 30, 50) +
		scaled(float64(user.LongestStreak), 60, 30) +
		scaled(tenure, 90, 20)
}

// Leadership rewards activity volume, a high trust score and achievements.
func Leadership(user *types.User, trust float64, achievements int) float64 {
	var bonus float64
	switch {
	case trust >= 80:
		bonus = 30
	case trust >= 60:
		bonus = 20
	}

	return scaled(float64(user.TotalMessages), 500, 40) + bonus + scaled(float64(achievements), 5, 30)
}

// scaled maps value linearly so that target yields ceiling, capped at ceiling.
func scaled(value, target, ceiling float64) float64 {
	if value <= 0 {
		return 0
	}

	return min(ceiling, value/target*ceiling)
}
