// Package propagation fans committed device-state changes out to the
// subscribers of each device's group.
package propagation

import (
	"context"
	"log/slog"
	"time"

	"github.com/farm-telemetry/internal/domain"
)

// Publisher delivers one notification to every subscriber of its group.
type Publisher interface {
	Publish(ctx context.Context, n domain.ChangeNotification) error
}

// Report counts the outcome of one batch.
type Report struct {
	Sent    int
	Skipped int
	Failed  int
}

type Service interface {
	// Propagate publishes one notification per committed state, in batch
	// order. A failing item never stops its siblings.
	Propagate(ctx context.Context, batch []*domain.DeviceState) Report
}

type service struct {
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewService(publisher Publisher, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{publisher: publisher, log: log, now: time.Now}
}

func (s *service) Propagate(ctx context.Context, batch []*domain.DeviceState) Report {
	var r Report
	for _, state := range batch {
		if state == nil {
			r.Skipped++
			continue
		}
		if state.GroupID == "" {
			s.log.Warn("state change has no group, notification skipped", "device_id", state.DeviceID)
			r.Skipped++
			continue
		}
		n := domain.NewChangeNotification(state, s.now())
		if err := s.publisher.Publish(ctx, n); err != nil {
			s.log.Error("notification failed", "device_id", state.DeviceID, "group", n.GroupName, "error", err)
			r.Failed++
			continue
		}
		s.log.Info("notification sent", "device_id", state.DeviceID, "group", n.GroupName, "target", n.Target)
		r.Sent++
	}
	return r
}
