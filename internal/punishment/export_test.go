package punishment

import "time"

// SetClock replaces the time source of a Manager.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// FormatDuration exposes formatDuration to tests.
var FormatDuration = formatDuration
