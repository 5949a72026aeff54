// Package lambda adapts Lambda trigger events to the telemetry and
// propagation services.
package lambda

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/farm-telemetry/internal/application/telemetry"
	"github.com/farm-telemetry/internal/domain"
	"github.com/farm-telemetry/internal/pkg/id"
)

// IngestHandler consumes device telemetry from a Kinesis stream. The record
// partition key carries the connection-level device identity.
type IngestHandler struct {
	svc telemetry.Service
	log *slog.Logger
}

func NewIngestHandler(svc telemetry.Service, log *slog.Logger) *IngestHandler {
	if log == nil {
		log = slog.Default()
	}
	return &IngestHandler{svc: svc, log: log}
}

// Handle processes records in shard order. Rejected events are dropped after
// logging. The first store fault stops the batch and is reported as the
// batch item failure, so it and every later record are redelivered in order.
func (h *IngestHandler) Handle(ctx context.Context, ev events.KinesisEvent) (events.KinesisEventResponse, error) {
	invocation := id.New()
	log := h.log.With("invocation_id", invocation)

	var resp events.KinesisEventResponse
	var stored, rejected int
	for _, rec := range ev.Records {
		env := telemetry.Envelope{
			EnqueuedAt:         rec.Kinesis.ApproximateArrivalTimestamp.Time,
			ConnectionDeviceID: rec.Kinesis.PartitionKey,
		}
		_, err := h.svc.Ingest(ctx, rec.Kinesis.Data, env)
		switch {
		case err == nil:
			stored++
		case errors.Is(err, domain.ErrUnavailable):
			log.Error("store unavailable, batch will be redelivered",
				"event_id", rec.EventID, "sequence_number", rec.Kinesis.SequenceNumber, "error", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures,
				events.KinesisBatchItemFailure{ItemIdentifier: rec.Kinesis.SequenceNumber})
			log.Info("ingest batch done", "stored", stored, "rejected", rejected, "records", len(ev.Records))
			return resp, nil
		default:
			log.Warn("telemetry event dropped", "event_id", rec.EventID, "error", err)
			rejected++
		}
	}
	log.Info("ingest batch done", "stored", stored, "rejected", rejected, "records", len(ev.Records))
	return resp, nil
}
