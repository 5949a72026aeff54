package lambda

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/farm-telemetry/internal/application/propagation"
	"github.com/farm-telemetry/internal/domain"
	"github.com/farm-telemetry/internal/infrastructure/dynamo"
	"github.com/farm-telemetry/internal/pkg/id"
)

const eventNameRemove = "REMOVE"

// StreamHandler turns DynamoDB stream batches of the device state table into
// group notifications.
type StreamHandler struct {
	svc propagation.Service
	log *slog.Logger
}

func NewStreamHandler(svc propagation.Service, log *slog.Logger) *StreamHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StreamHandler{svc: svc, log: log}
}

// Handle never fails the batch. Per-record failures are logged and counted.
func (h *StreamHandler) Handle(ctx context.Context, ev events.DynamoDBEvent) error {
	log := h.log.With("invocation_id", id.New())

	batch := make([]*domain.DeviceState, 0, len(ev.Records))
	for _, rec := range ev.Records {
		if rec.EventName == eventNameRemove || len(rec.Change.NewImage) == 0 {
			continue
		}
		state, err := dynamo.UnmarshalStreamImage(rec.Change.NewImage)
		if err != nil {
			log.Warn("stream record skipped", "event_id", rec.EventID, "error", err)
			continue
		}
		batch = append(batch, state)
	}

	r := h.svc.Propagate(ctx, batch)
	log.Info("propagation batch done", "records", len(ev.Records), "sent", r.Sent, "skipped", r.Skipped, "failed", r.Failed)
	return nil
}
