package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farm-telemetry/internal/config"
	"github.com/farm-telemetry/internal/infrastructure/dynamo"
	"github.com/farm-telemetry/internal/infrastructure/registry"
	"github.com/farm-telemetry/internal/infrastructure/signalr"
	transporthttp "github.com/farm-telemetry/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.ValidateStore(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		slog.Error("dynamodb client", "error", err)
		os.Exit(1)
	}
	if cfg.AppEnv == "development" {
		// Creates the device state table, and the legacy table when configured.
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	}

	// SignalR is optional: without it negotiate and join-group answer 500.
	var signalRClient *signalr.Client
	if cfg.SignalRConnectionString != "" {
		c, err := signalr.NewClient(cfg.SignalRConnectionString, cfg.SignalRHub, cfg.CredentialTTL, cfg.OutboundTimeout)
		if err != nil {
			slog.Error("signalr client", "error", err)
			os.Exit(1)
		}
		signalRClient = c
	} else {
		slog.Warn("SIGNALR_CONNECTION_STRING is not set, negotiate and join-group are disabled")
	}
	if cfg.DeviceRegistryURL == "" {
		slog.Warn("DEVICE_REGISTRY_URL is not set, device reads without farmId will fail")
	}

	deps := &transporthttp.Deps{
		DeviceStateRepo: dynamo.NewDeviceStateRepo(dynamoClient, cfg.DynamoTables.DeviceState),
		Registry:        registry.NewClient(cfg.DeviceRegistryURL, cfg.OutboundTimeout),
		SignalR:         signalRClient,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
