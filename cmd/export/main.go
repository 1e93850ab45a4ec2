package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robalyx/sentinel/internal/export"
	"github.com/robalyx/sentinel/internal/setup"
	"github.com/robalyx/sentinel/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
)

const (
	// ExportLogDir specifies where export log files are stored.
	ExportLogDir = "logs/export_logs"

	// DefaultOutputDir is offered when neither the flag nor the config names an output path.
	DefaultOutputDir = "exports"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "export",
		Usage: "Export the moderation ledger to a SQLite file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (defaults to export.path from worker.toml)",
			},
			&cli.IntFlag{
				Name:    "batch-size",
				Aliases: []string{"b"},
				Value:   1000,
				Usage:   "Rows read per query",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			// Initialize application with required dependencies
			app, err := setup.InitializeApp(ctx, telemetry.ServiceExport, ExportLogDir)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Cleanup(ctx)

			path := c.String("output")
			if path == "" {
				path = app.Config.Worker.Export.Path
			}

			if path == "" {
				path, err = promptPath(bufio.NewReader(os.Stdin))
				if err != nil {
					return fmt.Errorf("failed to read output path: %w", err)
				}
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			exporter := export.New(export.FromRepository(app.DB.Model()), int(c.Int("batch-size")), app.Logger)

			summary, err := exporter.Export(ctx, path)
			if err != nil {
				return fmt.Errorf("failed to export data: %w", err)
			}

			fmt.Printf("Exported %d users, %d warnings, %d cases, %d fingerprints, %d trust and %d reputation scores to %s\n",
				summary.Users, summary.Warnings, summary.Cases, summary.Fingerprints,
				summary.Trust, summary.Reputation, path)

			return nil
		},
	}

	return app.Run(context.Background(), os.Args)
}

// promptPath asks for the output path, offering a timestamped default.
func promptPath(reader *bufio.Reader) (string, error) {
	defValue := filepath.Join(DefaultOutputDir, "ledger_"+time.Now().UTC().Format("2006-01-02_150405")+".db")

	fmt.Printf("Enter output path [%s]: ", defValue)

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	if val := strings.TrimSpace(input); val != "" {
		return val, nil
	}

	return defValue, nil
}
