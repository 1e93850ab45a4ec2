package types

import (
	"time"
)

// Setting is a persisted admin override of a moderation parameter.
type Setting struct {
	Key       string    `bun:",pk"`
	Value     string    `bun:",type:text,notnull"`
	UpdatedBy string    `bun:",notnull"`
	UpdatedAt time.Time `bun:",notnull"`
}
