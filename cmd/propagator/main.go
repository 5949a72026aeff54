package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/farm-telemetry/internal/application/propagation"
	"github.com/farm-telemetry/internal/config"
	"github.com/farm-telemetry/internal/infrastructure/signalr"
	"github.com/farm-telemetry/internal/infrastructure/sns"
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
	if err := cfg.ValidatePropagator(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	publisher, err := newPublisher(context.Background(), cfg)
	if err != nil {
		log.Error("notification transport", "transport", cfg.NotifyTransport, "error", err)
		os.Exit(1)
	}
	log.Info("propagator cold start", "transport", cfg.NotifyTransport)

	svc := propagation.NewService(publisher, log)
	lambda.Start(lambdatransport.NewStreamHandler(svc, log).Handle)
}

func newPublisher(ctx context.Context, cfg *config.Config) (propagation.Publisher, error) {
	if cfg.NotifyTransport == config.TransportSNS {
		return sns.NewPublisher(ctx, cfg)
	}
	return signalr.NewClient(cfg.SignalRConnectionString, cfg.SignalRHub, cfg.CredentialTTL, cfg.OutboundTimeout)
}
