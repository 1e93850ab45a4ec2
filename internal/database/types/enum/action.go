package enum

import "errors"

// ErrInvalidSeverity is returned when a severity given by a moderator is not recognized.
var ErrInvalidSeverity = errors.New("invalid severity")

// Action is the platform-level enforcement attached to a warning.
//
//go:generate go tool enumer -type=Action -trimprefix=Action -transform=snake -sql -json
type Action int

const (
	ActionWarningOnly Action = iota
	ActionTimeout
	ActionBan
)

// CaseType is the kind of moderation case.
//
//go:generate go tool enumer -type=CaseType -trimprefix=CaseType -transform=snake -sql -json
type CaseType int

const (
	CaseTypeWarning CaseType = iota
	CaseTypeTimeout
	CaseTypeKick
	CaseTypeBan
)

// CaseTypeFor returns the case type recorded for an enforcement action.
func CaseTypeFor(a Action) CaseType {
	switch a {
	case ActionTimeout:
		return CaseTypeTimeout
	case ActionBan:
		return CaseTypeBan
	default:
		return CaseTypeWarning
	}
}

// CaseStatus tracks the lifecycle of a case.
//
//go:generate go tool enumer -type=CaseStatus -trimprefix=CaseStatus -transform=snake -sql -json
type CaseStatus int

const (
	CaseStatusOpen CaseStatus = iota
	CaseStatusResolved
	CaseStatusAppealed
)
