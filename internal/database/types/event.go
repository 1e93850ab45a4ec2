package types

import (
	"time"
)

// MessageEvent is a recorded message post.
// Everything except FlaggedAsSpam, Deleted and ReactionCount is immutable once stored.
type MessageEvent struct {
	ID              uint64    `bun:",pk"`                  // Discord message ID
	UserID          uint64    `bun:",notnull"`             // Author
	ChannelID       uint64    `bun:",notnull"`             // Channel posted in
	Content         string    `bun:",type:text,notnull"`   // Raw content
	ContentHash     string    `bun:",notnull"`             // sha256 of normalized content
	AttachmentCount int       `bun:",notnull,default:0"`   // Number of attachments
	MentionCount    int       `bun:",notnull,default:0"`   // Number of user and role mentions
	ReactionCount   int       `bun:",notnull,default:0"`   // Reactions currently on the message
	FlaggedAsSpam   bool      `bun:",notnull,default:false"`
	Deleted         bool      `bun:",notnull,default:false"`
	CreatedAt       time.Time `bun:",notnull"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID       uint64
	Filename string
	URL      string
	Size     int64
}

// Message is an inbound message event as delivered by the platform.
type Message struct {
	ID          uint64
	ChannelID   uint64
	Author      Profile
	Content     string
	Attachments []Attachment
	Mentions    int
	RoleNames   []string // Role names of the author, used for trusted role bypass
	CreatedAt   time.Time
}
