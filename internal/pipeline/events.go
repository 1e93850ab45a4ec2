package pipeline

import (
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/punishment"
	"github.com/robalyx/sentinel/internal/setup/config"
)

// ReactionEvent is a reaction added to or removed from a message.
type ReactionEvent struct {
	MessageID uint64
	ChannelID uint64
	Reactor   types.Profile
	Added     bool
	At        time.Time
}

// VoiceEvent is an ended voice session.
type VoiceEvent struct {
	User      types.Profile
	ChannelID uint64
	Minutes   int64
	At        time.Time
}

// JoinEvent is a member joining a guild.
type JoinEvent struct {
	GuildID uint64
	Member  types.Profile
	At      time.Time
}

// MessageResult is the outcome of handling one message.
type MessageResult struct {
	Abusive      bool
	Category     string
	Reason       string
	Outcome      *punishment.Outcome  // Set when the message was punished
	Achievements []config.Achievement // Unlocked by this message
}
