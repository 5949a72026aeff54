package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/farm-telemetry/internal/application/telemetry"
	"github.com/farm-telemetry/internal/config"
	"github.com/farm-telemetry/internal/infrastructure/dynamo"
	lambdatransport "github.com/farm-telemetry/internal/transport/lambda"
	"github.com/joho/godotenv"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.ValidateIngest(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	dynamoClient, err := dynamo.NewClient(context.Background(), cfg)
	if err != nil {
		log.Error("dynamodb client", "error", err)
		os.Exit(1)
	}

	svc := telemetry.NewService(
		telemetry.NewNormalizer(telemetry.OptionsFromConfig(cfg)),
		dynamo.NewDeviceStateRepo(dynamoClient, cfg.DynamoTables.DeviceState),
		log,
	)
	log.Info("ingest cold start", "group_mode", cfg.GroupMode, "table", cfg.DynamoTables.DeviceState)

	lambda.Start(lambdatransport.NewIngestHandler(svc, log).Handle)
}
