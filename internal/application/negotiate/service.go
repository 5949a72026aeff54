package negotiate

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/farm-telemetry/internal/domain"
	"github.com/farm-telemetry/internal/infrastructure/signalr"
)

type Service interface {
	// Negotiate returns the JSON connection credential a client uses to open
	// a transport session.
	Negotiate(userID string) ([]byte, error)
}

type credentialSource interface {
	ConnectionInfo(userID string) (signalr.ConnectionInfo, error)
}

type service struct {
	source credentialSource
	log    *slog.Logger
}

func NewService(source credentialSource, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{source: source, log: log}
}

func (s *service) Negotiate(userID string) ([]byte, error) {
	if s.source == nil {
		return nil, fmt.Errorf("transport credentials: %w", domain.ErrMisconfigured)
	}
	info, err := s.source.ConnectionInfo(userID)
	if err != nil {
		s.log.Error("negotiate failed", "user_id", userID, "error", err)
		return nil, err
	}
	return Normalize(info)
}

// Normalize turns connection info of any shape into a JSON body. Text and
// raw JSON pass through unchanged; anything else is marshalled.
func Normalize(info any) ([]byte, error) {
	switch v := info.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	b, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encode connection info: %w", err)
	}
	return b, nil
}
