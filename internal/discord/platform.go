package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/discord/rate"
	"go.uber.org/zap"
)

// ErrDirectMessagesClosed is returned when a user does not accept direct messages.
var ErrDirectMessagesClosed = errors.New("direct messages closed")

const (
	// maxTimeout is the longest communication timeout Discord accepts.
	maxTimeout = 28 * 24 * time.Hour
	// cannotMessageUser is the JSON error code for users that block DMs from the guild.
	cannotMessageUser = 50007
)

// RestClient is the subset of the Discord REST API used for enforcement.
type RestClient interface {
	DeleteMessage(channelID, messageID snowflake.ID, opts ...rest.RequestOpt) error
	UpdateMember(
		guildID, userID snowflake.ID, memberUpdate discord.MemberUpdate, opts ...rest.RequestOpt,
	) (*discord.Member, error)
	AddBan(guildID, userID snowflake.ID, deleteMessageDuration time.Duration, opts ...rest.RequestOpt) error
	RemoveMember(guildID, userID snowflake.ID, opts ...rest.RequestOpt) error
	CreateDMChannel(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.DMChannel, error)
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// Platform performs moderation actions in one guild.
type Platform struct {
	rest    RestClient
	guildID snowflake.ID
	dm      *rate.Limiter
	logger  *zap.Logger
}

// NewPlatform creates a Platform. Direct messages are paced by the limiter.
func NewPlatform(client RestClient, guildID uint64, dm *rate.Limiter, logger *zap.Logger) *Platform {
	return &Platform{
		rest:    client,
		guildID: snowflake.ID(guildID),
		dm:      dm,
		logger:  logger.Named("discord_platform"),
	}
}

// DeleteMessage removes a message.
func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID uint64) error {
	err := p.rest.DeleteMessage(snowflake.ID(channelID), snowflake.ID(messageID),
		rest.WithCtx(ctx), rest.WithReason("Automated moderation"))
	if err != nil {
		return fmt.Errorf("failed to delete message %d: %w", messageID, err)
	}
	return nil
}

// Timeout disables communication for the duration. Durations above the platform limit are capped.
func (p *Platform) Timeout(ctx context.Context, userID uint64, duration time.Duration, reason string) error {
	until := time.Now().Add(min(duration, maxTimeout))

	_, err := p.rest.UpdateMember(p.guildID, snowflake.ID(userID), discord.MemberUpdate{
		CommunicationDisabledUntil: json.NewNullablePtr(until),
	}, rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to timeout user %d: %w", userID, err)
	}
	return nil
}

// Ban bans a user and removes their last day of messages.
func (p *Platform) Ban(ctx context.Context, userID uint64, reason string) error {
	err := p.rest.AddBan(p.guildID, snowflake.ID(userID), 24*time.Hour, rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to ban user %d: %w", userID, err)
	}
	return nil
}

// Kick removes a user from the guild.
func (p *Platform) Kick(ctx context.Context, userID uint64, reason string) error {
	err := p.rest.RemoveMember(p.guildID, snowflake.ID(userID), rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to kick user %d: %w", userID, err)
	}
	return nil
}

// SendDirectMessage opens a DM channel and sends content.
func (p *Platform) SendDirectMessage(ctx context.Context, userID uint64, content string) error {
	if err := p.dm.Wait(ctx); err != nil {
		return err
	}

	channel, err := p.rest.CreateDMChannel(snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel for user %d: %w", userID, err)
	}

	_, err = p.rest.CreateMessage(channel.ID(), discord.NewMessageCreateBuilder().
		SetContent(content).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		var restErr *rest.Error
		if errors.As(err, &restErr) && restErr.Code == cannotMessageUser {
			return fmt.Errorf("%w (userID=%d)", ErrDirectMessagesClosed, userID)
		}
		return fmt.Errorf("failed to send DM to user %d: %w", userID, err)
	}

	p.logger.Debug("Sent direct message", zap.Uint64("userID", userID))
	return nil
}

// PostMessage sends content with embeds to a guild channel.
func (p *Platform) PostMessage(ctx context.Context, channelID uint64, embeds ...discord.Embed) error {
	_, err := p.rest.CreateMessage(snowflake.ID(channelID), discord.NewMessageCreateBuilder().
		SetEmbeds(embeds...).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to post to channel %d: %w", channelID, err)
	}
	return nil
}
