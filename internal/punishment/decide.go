package punishment

import (
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/robalyx/sentinel/internal/setup/config"
)

// Decision is the enforcement chosen for a warning ordinal.
type Decision struct {
	Action  enum.Action
	Timeout time.Duration // Zero unless Action is a timeout
}

// Decide returns the enforcement for the active warning count n.
// A ban at or past the threshold always wins over any configured timeout.
func Decide(cfg *config.Punishment, n int) Decision {
	if n >= cfg.BanThreshold {
		return Decision{Action: enum.ActionBan}
	}

	if d, ok := cfg.TimeoutFor(n); ok {
		return Decision{Action: enum.ActionTimeout, Timeout: d}
	}

	return Decision{Action: enum.ActionWarningOnly}
}

// formatDuration renders a timeout in the largest whole unit.
func formatDuration(d time.Duration) string {
	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}

	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return unit(int64(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return unit(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return unit(int64(d/time.Minute), "minute")
	default:
		return unit(int64(d/time.Second), "second")
	}
}
