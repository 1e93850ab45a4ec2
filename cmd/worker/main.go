package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robalyx/sentinel/internal/redis"
	"github.com/robalyx/sentinel/internal/setup"
	"github.com/robalyx/sentinel/internal/setup/telemetry"
	"github.com/robalyx/sentinel/internal/trust"
	"github.com/robalyx/sentinel/internal/worker/maintenance"
	"github.com/robalyx/sentinel/internal/worker/status"
	"github.com/urfave/cli/v3"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// MaintenanceWorker deletes old message history and refreshes stale trust scores.
	MaintenanceWorker = "maintenance"

	// StatusCommand prints the heartbeats of running workers.
	StatusCommand = "status"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Start sentinel background workers",
		Commands: []*cli.Command{
			{
				Name:  MaintenanceWorker,
				Usage: "Start the maintenance worker",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runMaintenance(ctx)
				},
			},
			{
				Name:  StatusCommand,
				Usage: "List running workers",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return printStatus(ctx)
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runMaintenance runs the maintenance jobs until interrupted.
func runMaintenance(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	statusClient, err := app.RedisManager.GetClient(redis.StatusDBIndex)
	if err != nil {
		return err
	}

	workerLogger := app.LogManager.GetWorkerLogger(MaintenanceWorker + "_worker")
	repo := app.DB.Model()

	reporter := status.NewReporter(statusClient, MaintenanceWorker, workerLogger)
	reporter.Start(ctx)
	defer reporter.Stop()

	scorer := trust.NewScorer(repo.User(), repo.Warning(), repo.Score(), app.Settings, workerLogger)
	worker := maintenance.New(repo.Event(), repo.Score(), scorer, app.Settings, &app.Config.Worker, reporter, workerLogger)

	log.Printf("Maintenance worker %s started. Waiting for interrupt signal to gracefully shutdown...", reporter.WorkerID())

	worker.Start(ctx)

	return nil
}

// printStatus prints one line per reported worker.
func printStatus(ctx context.Context) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(ctx)

	statusClient, err := app.RedisManager.GetClient(redis.StatusDBIndex)
	if err != nil {
		return err
	}

	statuses, err := status.List(ctx, statusClient, app.Logger)
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		fmt.Println("No workers reported")
		return nil
	}

	now := time.Now()
	for _, s := range statuses {
		state := "offline"
		if s.IsOnline(now) {
			state = "online"
		}
		if !s.IsHealthy {
			state += " (unhealthy)"
		}

		fmt.Printf("%-12s %s  %-18s %-20s %3d%%  last seen %s ago\n",
			s.WorkerType, s.WorkerID, state, s.CurrentTask, s.Progress,
			now.Sub(s.LastSeen).Round(time.Second))
	}

	return nil
}
