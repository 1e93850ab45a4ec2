package discord_test

import (
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	sentineldiscord "github.com/robalyx/sentinel/internal/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roleCache map[snowflake.ID]string

func (c roleCache) Role(_, roleID snowflake.ID) (discord.Role, bool) {
	name, ok := c[roleID]
	return discord.Role{ID: roleID, Name: name}, ok
}

func TestToMessage(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	authorID := snowflake.New(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	msg := sentineldiscord.ToMessage(discord.Message{
		ID:        100,
		ChannelID: 200,
		Content:   "hello",
		Author:    discord.User{ID: authorID, Username: "alice"},
		Attachments: []discord.Attachment{
			{ID: 5, Filename: "cat.png", URL: "https://cdn.example/cat.png", Size: 2048},
		},
		Mentions:     []discord.User{{ID: 1}, {ID: 2}},
		MentionRoles: []snowflake.ID{3},
		CreatedAt:    created,
	}, []string{"Member"})

	assert.Equal(t, uint64(100), msg.ID)
	assert.Equal(t, uint64(200), msg.ChannelID)
	assert.Equal(t, uint64(authorID), msg.Author.UserID)
	assert.Equal(t, "alice", msg.Author.Username)
	assert.Equal(t, 2024, msg.Author.CreatedAt.UTC().Year())
	assert.Equal(t, 3, msg.Mentions)
	assert.Equal(t, []string{"Member"}, msg.RoleNames)
	assert.Equal(t, created, msg.CreatedAt)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, int64(2048), msg.Attachments[0].Size)
	assert.Equal(t, "cat.png", msg.Attachments[0].Filename)
}

func TestRoleNames(t *testing.T) {
	t.Parallel()

	cache := roleCache{1: "Moderator", 2: "Member"}

	names := sentineldiscord.RoleNames(cache, guildID, []snowflake.ID{1, 3, 2})
	assert.Equal(t, []string{"Moderator", "Member"}, names)
}

func TestVoiceSessions(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := sentineldiscord.NewVoiceSessions()

	_, ok := sessions.Leave(1, start)
	assert.False(t, ok, "leave without join")

	sessions.Join(1, start)
	sessions.Join(1, start.Add(10*time.Minute))

	minutes, ok := sessions.Leave(1, start.Add(25*time.Minute+30*time.Second))
	require.True(t, ok)
	assert.Equal(t, int64(25), minutes)

	_, ok = sessions.Leave(1, start.Add(time.Hour))
	assert.False(t, ok, "session closed")
}
