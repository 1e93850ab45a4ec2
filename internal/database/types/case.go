package types

import (
	"time"

	"github.com/robalyx/sentinel/internal/database/types/enum"
)

// Case is a moderation record grouping one enforcement action with its justification.
// Only Status changes after creation.
type Case struct {
	ID        int64           `bun:",pk,autoincrement"`
	Type      enum.CaseType   `bun:",type:varchar,notnull"`
	UserID    uint64          `bun:",notnull"`
	Reason    string          `bun:",type:text,notnull"`
	CreatedBy string          `bun:",notnull"`
	Action    enum.Action     `bun:",type:varchar,notnull,default:'warning_only'"`
	Status    enum.CaseStatus `bun:",type:varchar,notnull,default:'open'"`
	Evidence  CaseEvidence    `bun:",type:jsonb"`
	ChannelID uint64          `bun:",notnull,default:0"`
	MessageID uint64          `bun:",notnull,default:0"`
	CreatedAt time.Time       `bun:",notnull"`
}

// CaseEvidence is the structured context stored with a case.
type CaseEvidence struct {
	Category     enum.Category `json:"category,omitempty"`
	Content      string        `json:"content,omitempty"`
	WarningCount int           `json:"warningCount,omitempty"`
	Duration     int           `json:"duration,omitempty"` // Timeout seconds
}

// Punishment is the full ledger entry created for one enforcement.
type Punishment struct {
	Case    *Case
	Warning *Warning // Nil for kicks
}

// CategoryCount is a warning count grouped by category.
type CategoryCount struct {
	Category enum.Category `bun:"category"`
	Count    int64         `bun:"count"`
}
