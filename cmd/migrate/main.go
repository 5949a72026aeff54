// Command migrate copies device state from the device-keyed legacy table
// into the group-keyed table, resolving groups through the device registry
// when an item carries none.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/farm-telemetry/internal/application/migration"
	"github.com/farm-telemetry/internal/config"
	"github.com/farm-telemetry/internal/infrastructure/dynamo"
	"github.com/farm-telemetry/internal/infrastructure/registry"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	var opts migration.Options
	pflag.BoolVar(&opts.DryRun, "dry-run", false, "log what would be migrated without writing")
	pflag.IntVar(&opts.Limit, "limit", 0, "stop after migrating this many items (0 = no limit)")
	pflag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.ValidateStore(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.DynamoTables.LegacyDeviceState == "" {
		log.Error("DYNAMO_TABLE_LEGACY_DEVICE_STATE is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Error("dynamodb client", "error", err)
		os.Exit(1)
	}

	legacyRepo := dynamo.NewLegacyDeviceStateRepo(dynamoClient, cfg.DynamoTables.LegacyDeviceState)
	stateRepo := dynamo.NewDeviceStateRepo(dynamoClient, cfg.DynamoTables.DeviceState)

	var svc migration.Service
	if cfg.DeviceRegistryURL != "" {
		svc = migration.NewService(legacyRepo, stateRepo, registry.NewClient(cfg.DeviceRegistryURL, cfg.OutboundTimeout), log)
	} else {
		log.Warn("DEVICE_REGISTRY_URL is not set, items without farmID will be skipped")
		svc = migration.NewService(legacyRepo, stateRepo, nil, log)
	}

	report, err := svc.Run(ctx, opts)
	log.Info("migration finished", "migrated", report.Migrated, "skipped", report.Skipped, "dry_run", opts.DryRun)
	if err != nil {
		log.Error("migration stopped", "error", err)
		os.Exit(1)
	}
}
