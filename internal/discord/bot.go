// Package discord adapts the Discord gateway and REST API to the moderation core.
package discord

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/sentinel/internal/setup/config"
	"go.uber.org/zap"
)

// Bot owns the gateway connection.
type Bot struct {
	client bot.Client
	cfg    *config.Discord
	logger *zap.Logger
}

// NewBot creates the Discord client. Listeners are attached by Start.
func NewBot(cfg *config.Discord, logger *zap.Logger) (*Bot, error) {
	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMessageReactions,
				gateway.IntentGuildVoiceStates,
				gateway.IntentMessageContent,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagRoles, cache.FlagVoiceStates),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	return &Bot{
		client: client,
		cfg:    cfg,
		logger: logger.Named("discord"),
	}, nil
}

// Rest returns the REST client used for platform actions.
func (b *Bot) Rest() RestClient {
	return b.client.Rest()
}

// Start attaches the listeners, registers commands and opens the gateway.
// Commands are registered to the moderated guild only.
func (b *Bot) Start(ctx context.Context, listener *Listener, commands *Commands) error {
	b.client.AddEventListeners(&events.ListenerAdapter{
		OnGuildMessageCreate:            listener.OnGuildMessageCreate,
		OnGuildMessageReactionAdd:       listener.OnGuildMessageReactionAdd,
		OnGuildMessageReactionRemove:    listener.OnGuildMessageReactionRemove,
		OnGuildVoiceJoin:                listener.OnGuildVoiceJoin,
		OnGuildVoiceLeave:               listener.OnGuildVoiceLeave,
		OnGuildMemberJoin:               listener.OnGuildMemberJoin,
		OnApplicationCommandInteraction: commands.OnApplicationCommandInteraction,
	})

	b.logger.Info("Registering commands")

	_, err := b.client.Rest().SetGuildCommands(b.client.ApplicationID(), snowflake.ID(b.cfg.GuildID), Definitions())
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close shuts down the gateway connection.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.client.Close(ctx)
}
