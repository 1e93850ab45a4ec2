package enum

// Category is the classification a detector assigns to an abusive event.
//
//go:generate go tool enumer -type=Category -trimprefix=Category -transform=snake -sql -json
type Category int

const (
	// CategoryNone is the category of a clean verdict.
	CategoryNone Category = iota
	CategoryScam
	CategoryLinkSpam
	CategoryMentionSpam
	CategoryContentSpam
	CategoryRapidMessaging
	CategoryDuplicate
	CategoryCrossChannel
	CategoryImageSpam
	CategorySpam
	CategoryCommunityReported
	CategoryManual
)

// Severity maps an automatic detection category to its warning severity.
func (c Category) Severity() Severity {
	switch c {
	case CategoryScam, CategoryLinkSpam:
		return SeverityHigh
	case CategoryMentionSpam, CategoryCrossChannel:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
