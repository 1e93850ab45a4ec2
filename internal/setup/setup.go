package setup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/migrations"
	"github.com/robalyx/sentinel/internal/redis"
	"github.com/robalyx/sentinel/internal/settings"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// ErrMigrationsPending is returned when the operator declines pending migrations.
var ErrMigrationsPending = errors.New("database migrations are pending")

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	RedisManager *redis.Manager     // Redis connection manager
	Settings     *settings.Manager  // Live moderation settings
	LogManager   *telemetry.Manager // Log management system
	stopTracing  func(context.Context) error
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	// Load app configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Tracing comes first so the error core has a provider to write into
	stopTracing := telemetry.ConfigureTracing(&cfg.Common.Telemetry, serviceType, config.RepositoryVersion)

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug, cfg.Common.Telemetry.UptraceDSN != "")

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		_ = stopTracing(ctx)
		return nil, err
	}

	// Redis manager provides connection pools for various subsystems
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	// Initialize database with migration check
	db, err := checkAndRunMigrations(ctx, &cfg.Common, dbLogger)
	if err != nil {
		redisManager.Close()
		_ = stopTracing(ctx)
		return nil, err
	}

	// Stored overrides are applied on top of the file configuration
	settingsManager := settings.NewManager(&cfg.Common.Moderation, db.Model().Setting(), logger)
	if err := settingsManager.Load(ctx); err != nil {
		logger.Error("Failed to load setting overrides, using file configuration", zap.Error(err))
	}

	// Bundle all initialized components
	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		RedisManager: redisManager,
		Settings:     settingsManager,
		LogManager:   logManager,
		stopTracing:  stopTracing,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections after the database as pending jobs may still hold them
	s.RedisManager.Close()

	// Flush pending spans
	if err := s.stopTracing(ctx); err != nil {
		log.Printf("Failed to shutdown tracing: %v", err)
	}

	// Sync buffered logs last
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}
}

// checkAndRunMigrations runs database migrations if needed.
func checkAndRunMigrations(ctx context.Context, cfg *config.CommonConfig, dbLogger *zap.Logger) (database.Client, error) {
	traceQueries := cfg.Telemetry.TraceQueries && cfg.Telemetry.UptraceDSN != ""

	tempDB, err := database.NewConnection(ctx, &cfg.PostgreSQL, dbLogger, database.Options{TraceQueries: traceQueries})
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to initialize migration tables: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	unapplied := ms.Unapplied()
	if len(unapplied) == 0 {
		return tempDB, nil
	}

	log.Printf("%d database migrations are pending. Would you like to run them now? (y/N)", len(unapplied))

	var response string

	_, _ = fmt.Scanln(&response)

	tempDB.Close()

	if response != "y" && response != "Y" {
		return nil, ErrMigrationsPending
	}

	return database.NewConnection(ctx, &cfg.PostgreSQL, dbLogger, database.Options{
		TraceQueries: traceQueries,
		AutoMigrate:  true,
	})
}
