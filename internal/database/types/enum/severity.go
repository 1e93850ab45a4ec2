package enum

// Severity ranks how serious a warning is.
//
//go:generate go tool enumer -type=Severity -trimprefix=Severity -transform=snake -sql -json
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Multiplier scales the trust penalty of a warning.
func (s Severity) Multiplier() float64 {
	switch s {
	case SeverityMedium:
		return 1.5
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 1
	}
}
