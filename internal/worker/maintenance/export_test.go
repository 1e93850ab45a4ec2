package maintenance

import "time"

// SetClock replaces the worker clock.
func (w *Worker) SetClock(now func() time.Time) {
	w.now = now
}
