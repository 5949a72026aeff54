package http

import (
	"github.com/farm-telemetry/internal/infrastructure/dynamo"
	"github.com/farm-telemetry/internal/infrastructure/registry"
	"github.com/farm-telemetry/internal/infrastructure/signalr"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	DeviceStateRepo *dynamo.DeviceStateRepo
	Registry        *registry.Client
	// SignalR is nil when SIGNALR_CONNECTION_STRING is unset; negotiate and
	// join-group then answer 500.
	SignalR *signalr.Client
}
