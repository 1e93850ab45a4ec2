package types

import (
	"time"
)

// User is a community member observed through the event stream.
// Records are never hard-deleted; IsBanned marks banned users.
type User struct {
	ID                uint64    `bun:",pk"`                 // Discord user ID
	Username          string    `bun:",notnull,default:''"` // Last seen username
	CreatedAt         time.Time `bun:",notnull"`            // Account creation time from the identity provider
	JoinedAt          time.Time `bun:",nullzero"`           // When the user joined this server
	FirstSeen         time.Time `bun:",notnull"`            // First observed event
	LastSeen          time.Time `bun:",notnull"`            // Most recent observed event
	LastActiveAt      time.Time `bun:",nullzero"`           // Most recent clean message, drives the streak
	TotalMessages     int64     `bun:",notnull,default:0"`
	ReactionsGiven    int64     `bun:",notnull,default:0"`
	ReactionsReceived int64     `bun:",notnull,default:0"`
	VoiceMinutes      int64     `bun:",notnull,default:0"`
	CurrentStreak     int       `bun:",notnull,default:0"` // Consecutive active days
	LongestStreak     int       `bun:",notnull,default:0"` // Best streak ever
	IsBanned          bool      `bun:",notnull,default:false"`
}

// AccountAge returns how long the identity has existed at now.
func (u *User) AccountAge(now time.Time) time.Duration {
	if u.CreatedAt.IsZero() {
		return 0
	}

	return max(now.Sub(u.CreatedAt), 0)
}

// ServerAge returns how long the user has been a member at now.
func (u *User) ServerAge(now time.Time) time.Duration {
	if u.JoinedAt.IsZero() {
		return 0
	}

	return max(now.Sub(u.JoinedAt), 0)
}

// Profile is the identity information the platform supplies with every event.
type Profile struct {
	UserID    uint64
	Username  string
	CreatedAt time.Time
	JoinedAt  time.Time // zero when unknown
}

// ChannelActivity counts a user's messages in one channel.
// It outlives the message retention window.
type ChannelActivity struct {
	UserID       uint64    `bun:",pk"`
	ChannelID    uint64    `bun:",pk"`
	MessageCount int64     `bun:",notnull,default:0"`
	LastMessage  time.Time `bun:",notnull"`
}

// ActivityStats are the event-derived aggregates the reputation scorer reads.
type ActivityStats struct {
	HighValueMessages  int64 // Messages with at least the high-value reaction count
	TopChannelMessages int64 // Messages in the user's most active channel
	ActiveChannels     int64 // Channels with more than the diversity minimum
}
