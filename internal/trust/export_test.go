package trust

import "time"

// SetClock replaces the time source of a Scorer.
func (s *Scorer) SetClock(now func() time.Time) {
	s.now = now
}
