package discord

import (
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/database/types"
)

// RoleCache resolves guild roles.
type RoleCache interface {
	Role(guildID, roleID snowflake.ID) (discord.Role, bool)
}

// ToProfile converts a Discord user. Account creation time comes from the snowflake.
func ToProfile(user discord.User) types.Profile {
	return types.Profile{
		UserID:    uint64(user.ID),
		Username:  user.Username,
		CreatedAt: user.ID.Time(),
	}
}

// ToMessage converts a guild message.
func ToMessage(msg discord.Message, roleNames []string) *types.Message {
	attachments := make([]types.Attachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, types.Attachment{
			ID:       uint64(att.ID),
			Filename: att.Filename,
			URL:      att.URL,
			Size:     int64(att.Size),
		})
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = msg.ID.Time()
	}

	return &types.Message{
		ID:          uint64(msg.ID),
		ChannelID:   uint64(msg.ChannelID),
		Author:      ToProfile(msg.Author),
		Content:     msg.Content,
		Attachments: attachments,
		Mentions:    len(msg.Mentions) + len(msg.MentionRoles),
		RoleNames:   roleNames,
		CreatedAt:   createdAt,
	}
}

// RoleNames resolves role IDs to names. Unknown roles are skipped.
func RoleNames(cache RoleCache, guildID snowflake.ID, roleIDs []snowflake.ID) []string {
	names := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if role, ok := cache.Role(guildID, id); ok {
			names = append(names, role.Name)
		}
	}
	return names
}

// VoiceSessions tracks when users entered voice.
type VoiceSessions struct {
	mu     sync.Mutex
	joined map[uint64]time.Time
}

// NewVoiceSessions creates an empty tracker.
func NewVoiceSessions() *VoiceSessions {
	return &VoiceSessions{joined: make(map[uint64]time.Time)}
}

// Join starts a session. A session that is already open keeps its start.
func (v *VoiceSessions) Join(userID uint64, at time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.joined[userID]; !ok {
		v.joined[userID] = at
	}
}

// Leave ends a session and returns its whole minutes.
func (v *VoiceSessions) Leave(userID uint64, at time.Time) (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	start, ok := v.joined[userID]
	if !ok {
		return 0, false
	}
	delete(v.joined, userID)

	return int64(at.Sub(start) / time.Minute), true
}
