package discord

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/sentinel/internal/raid"
	"go.uber.org/zap"
)

// Poster sends embeds to a channel.
type Poster interface {
	PostMessage(ctx context.Context, channelID uint64, embeds ...discord.Embed) error
}

// Alerts posts raid alerts to the alert channel.
type Alerts struct {
	poster    Poster
	channelID uint64
	logger    *zap.Logger
}

// NewAlerts creates an alert sender. With a zero channel alerts are only logged.
func NewAlerts(poster Poster, channelID uint64, logger *zap.Logger) *Alerts {
	return &Alerts{
		poster:    poster,
		channelID: channelID,
		logger:    logger.Named("discord_alerts"),
	}
}

// RaidAlert posts a raid alert.
func (a *Alerts) RaidAlert(ctx context.Context, alert *raid.Alert) {
	if a.channelID == 0 {
		return
	}

	if err := a.poster.PostMessage(ctx, a.channelID, RaidEmbed(alert)); err != nil {
		a.logger.Error("Failed to post raid alert", zap.Uint64("guildID", alert.GuildID), zap.Error(err))
	}
}

// RaidEmbed renders a raid alert.
func RaidEmbed(alert *raid.Alert) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("Possible raid detected").
		SetDescription(fmt.Sprintf("%d members joined within %s.", alert.Joins, alert.Window)).
		SetTimestamp(alert.At).
		SetColor(0xe67e22).
		Build()
}
