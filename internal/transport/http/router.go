package http

import (
	"net/http"

	"github.com/farm-telemetry/internal/application/devicestate"
	"github.com/farm-telemetry/internal/application/membership"
	"github.com/farm-telemetry/internal/application/negotiate"
	"github.com/farm-telemetry/internal/config"
	"github.com/farm-telemetry/internal/transport/http/handler"
	appmiddleware "github.com/farm-telemetry/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Ms-Signalr-Userid"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	serviceAuth := func(next http.Handler) http.Handler { return next }
	if cfg.ServiceTokenSecret != "" {
		serviceAuth = appmiddleware.ServiceAuth([]byte(cfg.ServiceTokenSecret))
	}

	// 5 requests/second, burst of 10, on the endpoints that call the transport.
	transportRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	// A nil *signalr.Client or *registry.Client must reach the services as a
	// nil interface.
	var (
		membershipSvc membership.Service
		negotiateSvc  negotiate.Service
		deviceSvc     devicestate.Service
	)
	if deps.SignalR != nil {
		membershipSvc = membership.NewService(deps.SignalR, nil)
		negotiateSvc = negotiate.NewService(deps.SignalR, nil)
	} else {
		membershipSvc = membership.NewService(nil, nil)
		negotiateSvc = negotiate.NewService(nil, nil)
	}
	if deps.Registry != nil {
		deviceSvc = devicestate.NewService(deps.DeviceStateRepo, deps.Registry)
	} else {
		deviceSvc = devicestate.NewService(deps.DeviceStateRepo, nil)
	}

	healthH := handler.NewHealthHandler()
	deviceH := handler.NewDeviceHandler(deviceSvc)
	negotiateH := handler.NewNegotiateHandler(negotiateSvc)
	membershipH := handler.NewMembershipHandler(membershipSvc)

	r.Get("/v1/health-check/{action}", healthH.Ping)

	r.Get("/devices/{deviceId}", deviceH.Get)
	r.Get("/farms/{groupId}/devices", deviceH.ListByGroup)
	r.Get("/farms/{groupId}/devices/{deviceId}", deviceH.GetInGroup)

	r.Group(func(r chi.Router) {
		r.Use(transportRL.Limit)

		r.Get("/negotiate", negotiateH.Negotiate)
		r.Post("/negotiate", negotiateH.Negotiate)

		r.With(serviceAuth).Get("/join-group", membershipH.JoinGroup)
		r.With(serviceAuth).Post("/join-group", membershipH.JoinGroup)
	})

	return r
}
