package telemetry

import (
	"context"
	"fmt"

	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/uptrace/uptrace-go/uptrace"
)

// ConfigureTracing enables trace export when a DSN is configured.
// Returns a shutdown function that flushes pending spans.
func ConfigureTracing(cfg *config.Telemetry, serviceType ServiceType, version string) func(context.Context) error {
	if cfg.UptraceDSN == "" {
		return func(context.Context) error { return nil }
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(fmt.Sprintf("%s-%s", cfg.ServiceName, serviceType)),
		uptrace.WithServiceVersion(version),
	)

	return uptrace.Shutdown
}
