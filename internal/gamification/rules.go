package gamification

import (
	"errors"
	"fmt"

	"github.com/robalyx/sentinel/internal/database/types"
)

// ErrUnknownRule is returned for achievement rules that are not recognized.
var ErrUnknownRule = errors.New("unknown achievement rule")

// RuleKind selects the counter an achievement rule compares.
type RuleKind string

const (
	RuleMessageCountAtLeast      RuleKind = "message_count_at_least"
	RuleStreakAtLeast            RuleKind = "streak_at_least"
	RuleReactionsReceivedAtLeast RuleKind = "reactions_received_at_least"
	RuleReactionsGivenAtLeast    RuleKind = "reactions_given_at_least"
	RuleVoiceMinutesAtLeast      RuleKind = "voice_minutes_at_least"
)

// Rule is one threshold condition over the counters of a user.
type Rule struct {
	Kind      RuleKind
	Threshold int64
}

// ParseRule validates a configured rule.
func ParseRule(kind string, threshold int64) (Rule, error) {
	switch k := RuleKind(kind); k {
	case RuleMessageCountAtLeast, RuleStreakAtLeast, RuleReactionsReceivedAtLeast,
		RuleReactionsGivenAtLeast, RuleVoiceMinutesAtLeast:
		return Rule{Kind: k, Threshold: threshold}, nil
	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, kind)
	}
}

// Satisfied reports whether the user meets the rule.
func (r Rule) Satisfied(user *types.User) bool {
	var value int64

	switch r.Kind {
	case RuleMessageCountAtLeast:
		value = user.TotalMessages
	case RuleStreakAtLeast:
		value = int64(max(user.CurrentStreak, user.LongestStreak))
	case RuleReactionsReceivedAtLeast:
		value = user.ReactionsReceived
	case RuleReactionsGivenAtLeast:
		value = user.ReactionsGiven
	case RuleVoiceMinutesAtLeast:
		value = user.VoiceMinutes
	default:
		return false
	}

	return value >= r.Threshold
}
