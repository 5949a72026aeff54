// Package telemetry turns raw device events into stored device state.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/farm-telemetry/internal/domain"
)

type Service interface {
	// Ingest normalizes one event body and upserts the resulting state.
	Ingest(ctx context.Context, body []byte, env Envelope) (*domain.DeviceState, error)
}

type stateStore interface {
	Upsert(ctx context.Context, s *domain.DeviceState) error
}

type service struct {
	normalizer *Normalizer
	repo       stateStore
	log        *slog.Logger
	now        func() time.Time
}

func NewService(normalizer *Normalizer, repo stateStore, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{normalizer: normalizer, repo: repo, log: log, now: time.Now}
}

func (s *service) Ingest(ctx context.Context, body []byte, env Envelope) (*domain.DeviceState, error) {
	raw, err := DecodePayload(body)
	if err != nil {
		s.log.Warn("telemetry rejected", "connection_device_id", env.ConnectionDeviceID, "error", err)
		return nil, err
	}
	state, err := s.normalizer.Normalize(raw, env)
	if err != nil {
		s.log.Warn("telemetry rejected", "connection_device_id", env.ConnectionDeviceID, "error", err)
		return nil, err
	}
	state.UpdatedAt = s.now().UTC()

	if err := s.repo.Upsert(ctx, state); err != nil {
		s.log.Error("device state upsert failed", "device_id", state.DeviceID, "group_id", state.GroupID, "error", err)
		return nil, err
	}
	s.log.Info("device state upserted", "device_id", state.DeviceID, "group_id", state.GroupID)
	return state, nil
}
