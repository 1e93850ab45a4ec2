package types

import (
	"time"
)

// TrustComponents are the individual trust subscores.
type TrustComponents struct {
	AccountAge     float64 `bun:"account_age,notnull,default:0"`
	ServerAge      float64 `bun:"server_age,notnull,default:0"`
	MessageCount   float64 `bun:"message_count,notnull,default:0"`
	MessageQuality float64 `bun:"message_quality,notnull,default:0"`
	Consistency    float64 `bun:"consistency,notnull,default:0"`
	WarningPenalty float64 `bun:"warning_penalty,notnull,default:0"` // Zero or negative
	Reputation     float64 `bun:"reputation,notnull,default:0"`
}

// TrustScore is the cached trust posture of a user.
type TrustScore struct {
	UserID       uint64          `bun:",pk"`
	Overall      float64         `bun:",notnull,default:0"`
	Tier         string          `bun:",notnull"`
	Components   TrustComponents `bun:"embed:component_"`
	CalculatedAt time.Time       `bun:",notnull"`
}

// IsFresh reports whether the score was computed within maxAge of now.
func (s *TrustScore) IsFresh(now time.Time, maxAge time.Duration) bool {
	return !s.CalculatedAt.IsZero() && now.Sub(s.CalculatedAt) < maxAge
}

// ReputationComponents are the four reputation subscores.
type ReputationComponents struct {
	Expertise     float64 `bun:"expertise,notnull,default:0"`
	Collaboration float64 `bun:"collaboration,notnull,default:0"`
	Consistency   float64 `bun:"consistency,notnull,default:0"`
	Leadership    float64 `bun:"leadership,notnull,default:0"`
}

// ReputationScore is the cached community value score of a user.
type ReputationScore struct {
	UserID       uint64               `bun:",pk"`
	Overall      float64              `bun:",notnull,default:0"`
	Tier         string               `bun:",notnull"`
	Components   ReputationComponents `bun:"embed:component_"`
	CalculatedAt time.Time            `bun:",notnull"`
}
