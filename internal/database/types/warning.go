package types

import (
	"time"

	"github.com/robalyx/sentinel/internal/database/types/enum"
)

// Warning is one punitive action against a user.
// Warnings are never deleted; a reset moves ExpiresAt into the past.
type Warning struct {
	ID              int64         `bun:",pk,autoincrement"`
	UserID          uint64        `bun:",notnull"`
	Reason          string        `bun:",type:text,notnull"`
	IssuedBy        string        `bun:",notnull"` // Moderator ID or the system actor
	Category        enum.Category `bun:",type:varchar,notnull"`
	Severity        enum.Severity `bun:",type:varchar,notnull"`
	Action          enum.Action   `bun:",type:varchar,notnull"`
	TimeoutDuration int           `bun:",notnull,default:0"` // Seconds, zero without a timeout
	MessageID       uint64        `bun:",notnull,default:0"`
	ChannelID       uint64        `bun:",notnull,default:0"`
	CaseID          int64         `bun:",notnull"`
	IssuedAt        time.Time     `bun:",notnull"`
	ExpiresAt       *time.Time    `bun:",nullzero"` // Nil never expires
}

// IsActive reports whether the warning still counts toward escalation at now.
func (w *Warning) IsActive(now time.Time) bool {
	return w.ExpiresAt == nil || w.ExpiresAt.After(now)
}
