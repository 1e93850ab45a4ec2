package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/migrations"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var ErrNameRequired = errors.New("NAME argument required")

// session holds the connection shared by one command invocation.
type session struct {
	db       database.Client
	migrator *migrate.Migrator
	logger   *zap.Logger
}

// action is a command body that receives an open session.
type action func(ctx context.Context, c *cli.Command, s *session) error

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "db",
		Usage: "Sentinel database management tool",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Initialize migration tables",
				Action: withSession(initTables),
			},
			{
				Name:   "migrate",
				Usage:  "Run pending migrations",
				Action: withSession(migrateUp),
			},
			{
				Name:   "rollback",
				Usage:  "Rollback the last migration group",
				Action: withSession(rollback),
			},
			{
				Name:   "status",
				Usage:  "Show migration status",
				Action: withSession(status),
			},
			{
				Name:      "create",
				Usage:     "Create a new Go migration file",
				ArgsUsage: "NAME",
				Action:    withSession(create),
			},
			{
				Name:      "settings",
				Usage:     "List stored moderation setting overrides, or show one",
				ArgsUsage: "[KEY]",
				Action:    withSession(listSettings),
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// withSession connects for the duration of one command.
func withSession(fn action) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, _, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		db, err := database.NewConnection(ctx, &cfg.Common.PostgreSQL, logger, database.Options{})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		return fn(ctx, c, &session{
			db:       db,
			migrator: migrate.NewMigrator(db.DB(), migrations.Migrations),
			logger:   logger,
		})
	}
}

func initTables(ctx context.Context, _ *cli.Command, s *session) error {
	if err := s.migrator.Init(ctx); err != nil {
		return err
	}

	s.logger.Info("Migration tables ready")
	return nil
}

func migrateUp(ctx context.Context, _ *cli.Command, s *session) error {
	if err := s.migrator.Lock(ctx); err != nil {
		return err
	}
	defer s.migrator.Unlock(ctx) //nolint:errcheck

	group, err := s.migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		s.logger.Info("No new migrations to run (database is up to date)")
		return nil
	}

	s.logger.Info("Successfully migrated", zap.String("group", group.String()))
	return nil
}

func rollback(ctx context.Context, _ *cli.Command, s *session) error {
	if err := s.migrator.Lock(ctx); err != nil {
		return err
	}
	defer s.migrator.Unlock(ctx) //nolint:errcheck

	group, err := s.migrator.Rollback(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		s.logger.Info("No groups to roll back")
		return nil
	}

	s.logger.Info("Successfully rolled back", zap.String("group", group.String()))
	return nil
}

func status(ctx context.Context, _ *cli.Command, s *session) error {
	ms, err := s.migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("Migration status",
		zap.String("migrations", ms.String()),
		zap.String("unapplied", ms.Unapplied().String()),
		zap.String("last_group", ms.LastGroup().String()),
	)
	return nil
}

func create(ctx context.Context, c *cli.Command, s *session) error {
	if c.Args().Len() != 1 {
		return ErrNameRequired
	}

	mf, err := s.migrator.CreateGoMigration(ctx, c.Args().First())
	if err != nil {
		return err
	}

	s.logger.Info("Created Go migration",
		zap.String("name", mf.Name),
		zap.String("path", mf.Path),
	)
	return nil
}

func listSettings(ctx context.Context, c *cli.Command, s *session) error {
	if key := c.Args().First(); key != "" {
		setting, err := s.db.Model().Setting().GetSetting(ctx, key)
		if errors.Is(err, types.ErrSettingNotFound) {
			s.logger.Info("No override stored, the file configuration applies", zap.String("key", key))
			return nil
		}
		if err != nil {
			return err
		}

		logSetting(s.logger, setting)
		return nil
	}

	stored, err := s.db.Model().Setting().ListSettings(ctx)
	if err != nil {
		return err
	}

	if len(stored) == 0 {
		s.logger.Info("No setting overrides stored")
		return nil
	}

	for _, setting := range stored {
		logSetting(s.logger, setting)
	}
	return nil
}

func logSetting(logger *zap.Logger, setting *types.Setting) {
	logger.Info("Setting override",
		zap.String("key", setting.Key),
		zap.String("value", setting.Value),
		zap.String("updated_by", setting.UpdatedBy),
		zap.Time("updated_at", setting.UpdatedAt),
	)
}
