package trust

import (
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/setup/config"
)

// point is one knot of a piecewise linear curve.
type point struct {
	x, y float64
}

var (
	accountAgeCurve   = []point{{0, 0}, {30, 30}, {180, 60}, {360, 100}}
	serverAgeCurve    = []point{{0, 0}, {7, 20}, {30, 50}, {90, 100}}
	messageCountCurve = []point{{0, 0}, {50, 30}, {500, 70}, {1500, 100}}
	streakCurve       = []point{{0, 0}, {7, 20}, {30, 50}, {90, 100}}
)

// Inputs is the stored state a trust score is computed from.
type Inputs struct {
	User       *types.User
	Warnings   []*types.Warning // Active warnings
	Reputation float64          // Current overall reputation
}

// Compute derives a trust score from inputs at now. It has no side effects.
func Compute(cfg *config.Trust, in Inputs, now time.Time) *types.TrustScore {
	user := in.User

	components := types.TrustComponents{
		AccountAge:     interpolate(accountAgeCurve, days(user.AccountAge(now))),
		ServerAge:      interpolate(serverAgeCurve, days(user.ServerAge(now))),
		MessageCount:   interpolate(messageCountCurve, float64(user.TotalMessages)),
		MessageQuality: quality(user.TotalMessages, user.ReactionsReceived, cfg.MinQualityRatio),
		Consistency:    interpolate(streakCurve, float64(user.CurrentStreak)),
		WarningPenalty: Penalty(cfg, in.Warnings, now),
		Reputation:     clamp(in.Reputation),
	}

	overall := Combine(cfg.Weights, components)

	return &types.TrustScore{
		UserID:       user.ID,
		Overall:      overall,
		Tier:         cfg.Tiers.Resolve(overall),
		Components:   components,
		CalculatedAt: now,
	}
}

// Combine applies the weight magnitudes to the components and clamps the sum to [0,100].
// The warning penalty is already negative, so its weight magnitude keeps it negative.
func Combine(w config.TrustWeights, c types.TrustComponents) float64 {
	overall := c.AccountAge*abs(w.AccountAge) +
		c.ServerAge*abs(w.ServerAge) +
		c.MessageCount*abs(w.MessageCount) +
		c.MessageQuality*abs(w.MessageQuality) +
		c.Consistency*abs(w.Consistency) +
		c.WarningPenalty*abs(w.Warnings) +
		c.Reputation*abs(w.Reputation)

	return clamp(overall)
}

// Penalty sums the decayed warning penalties, floored at the configured minimum.
func Penalty(cfg *config.Trust, warnings []*types.Warning, now time.Time) float64 {
	var total float64
	for _, w := range warnings {
		total += cfg.WarningPenalty * w.Severity.Multiplier() * decay(cfg, days(now.Sub(w.IssuedAt)))
	}

	return max(total, cfg.PenaltyFloor)
}

// decay returns the fraction of a warning's penalty kept at the given age in days.
func decay(cfg *config.Trust, age float64) float64 {
	start := float64(cfg.WarningDecayDays)
	if age <= start || cfg.WarningDecaySpan <= 0 {
		return 1
	}

	return max(cfg.WarningDecayFloor, 1-(age-start)/float64(cfg.WarningDecaySpan))
}

// quality scores the reaction to message ratio. Ratios below minRatio score at most 30.
func quality(messages, reactions int64, minRatio float64) float64 {
	if messages <= 0 || minRatio <= 0 {
		return 0
	}

	scaled := float64(reactions) / float64(messages) / minRatio
	if scaled >= 1 {
		return min(100, scaled*100)
	}

	return scaled * 30
}

// interpolate evaluates a piecewise linear curve, holding the last value beyond the final knot.
func interpolate(curve []point, x float64) float64 {
	if x <= curve[0].x {
		return curve[0].y
	}

	for i := 1; i < len(curve); i++ {
		lo, hi := curve[i-1], curve[i]
		if x < hi.x {
			return lo.y + (x-lo.x)/(hi.x-lo.x)*(hi.y-lo.y)
		}
	}

	return curve[len(curve)-1].y
}

// days returns the number of whole days in d.
func days(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}

	return float64(d / (24 * time.Hour))
}

func clamp(v float64) float64 {
	return min(100, max(0, v))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
