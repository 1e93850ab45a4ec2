package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robalyx/sentinel/internal/detector"
	sentineldiscord "github.com/robalyx/sentinel/internal/discord"
	"github.com/robalyx/sentinel/internal/discord/rate"
	"github.com/robalyx/sentinel/internal/fetcher"
	"github.com/robalyx/sentinel/internal/gamification"
	"github.com/robalyx/sentinel/internal/pipeline"
	"github.com/robalyx/sentinel/internal/punishment"
	"github.com/robalyx/sentinel/internal/raid"
	"github.com/robalyx/sentinel/internal/redis"
	"github.com/robalyx/sentinel/internal/reputation"
	"github.com/robalyx/sentinel/internal/setup"
	"github.com/robalyx/sentinel/internal/setup/telemetry"
	"github.com/robalyx/sentinel/internal/trust"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// BotLogDir specifies where bot log files are stored.
const BotLogDir = "logs/bot_logs"

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "bot",
		Usage: "Start the sentinel moderation bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-dir",
				Value: BotLogDir,
				Usage: "Directory for log sessions",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runBot(ctx, c.String("log-dir"))
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runBot wires the moderation pipeline to the gateway and blocks until interrupted.
func runBot(ctx context.Context, logDir string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceBot, logDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	cfg := app.Config
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	repo := app.DB.Model()
	logger := app.Logger

	raidClient, err := app.RedisManager.GetClient(redis.RaidDBIndex)
	if err != nil {
		return err
	}

	discordBot, err := sentineldiscord.NewBot(&cfg.Bot.Discord, logger)
	if err != nil {
		return err
	}

	// Platform actions go through the bot's REST client
	dmLimiter := rate.New(
		time.Duration(cfg.Bot.Discord.DMInterval)*time.Millisecond,
		time.Duration(cfg.Bot.Discord.DMJitter)*time.Millisecond,
	)
	platform := sentineldiscord.NewPlatform(discordBot.Rest(), cfg.Bot.Discord.GuildID, dmLimiter, logger)

	// Scorers
	trustScorer := trust.NewScorer(repo.User(), repo.Warning(), repo.Score(), app.Settings, logger)
	reputationScorer := reputation.NewScorer(
		repo.User(), repo.Activity(), repo.Achievement(), repo.Score(), app.Settings, logger,
	)

	// Detection and enforcement
	imageFetcher := fetcher.New(nil, app.Settings, logger)
	messageDetector := detector.New(repo.Event(), trustScorer, repo.Fingerprint(), imageFetcher, app.Settings, logger)
	images := detector.NewImages(repo.Fingerprint(), app.Settings, logger)

	punisher := punishment.NewManager(punishment.Deps{
		Platform: platform,
		Ledger:   app.DB.Service().Ledger(),
		Warnings: repo.Warning(),
		Cases:    repo.Case(),
		Events:   repo.Event(),
		Users:    repo.User(),
		Trust:    trustScorer,
		Settings: app.Settings,
	}, logger)

	tracker := gamification.NewTracker(repo.User(), repo.Achievement(), app.Settings.Current().Achievements, logger)

	events := pipeline.New(pipeline.Deps{
		Detector:     messageDetector,
		Punisher:     punisher,
		Users:        repo.User(),
		Activity:     repo.Activity(),
		Events:       repo.Event(),
		Gamification: tracker,
		Raid:         raid.NewTracker(raidClient, app.Settings, logger),
		Alerter:      sentineldiscord.NewAlerts(platform, cfg.Bot.Discord.AlertChannelID, logger),
		Trust:        trustScorer,
	}, cfg.Bot.Pipeline, logger)
	events.Start(ctx)
	defer events.Stop()

	commands := sentineldiscord.NewCommands(sentineldiscord.CommandDeps{
		Moderation:   punisher,
		Trust:        trustScorer,
		Reputation:   reputationScorer,
		Images:       images,
		Settings:     app.Settings,
		Achievements: tracker,
		Users:        repo.User(),
	}, cfg.Bot.Discord.ModeratorRoles, time.Duration(cfg.Bot.RequestTimeout)*time.Millisecond, logger)

	listener := sentineldiscord.NewListener(ctx, events, cfg.Bot.Discord.GuildID, logger)

	if err := discordBot.Start(ctx, listener, commands); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")
	logger.Info("Bot started", zap.Uint64("guildID", cfg.Bot.Discord.GuildID))

	<-ctx.Done()

	// Stop the gateway before draining the pipeline
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	discordBot.Close(closeCtx)

	return nil
}
