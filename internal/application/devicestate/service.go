package devicestate

import (
	"context"
	"fmt"

	"github.com/farm-telemetry/internal/domain"
)

type Service interface {
	// Get reads one device. An empty groupID is resolved through the device
	// registry first, since state is partitioned by group.
	Get(ctx context.Context, deviceID, groupID string) (*domain.DeviceState, error)
	List(ctx context.Context, groupID string) ([]domain.DeviceState, error)
}

type stateStore interface {
	Get(ctx context.Context, groupID, deviceID string) (*domain.DeviceState, error)
	ListByGroup(ctx context.Context, groupID string) ([]domain.DeviceState, error)
}

type groupResolver interface {
	GroupOf(ctx context.Context, deviceID string) (string, error)
}

type service struct {
	repo     stateStore
	registry groupResolver
}

func NewService(repo stateStore, registry groupResolver) Service {
	return &service{repo: repo, registry: registry}
}

func (s *service) Get(ctx context.Context, deviceID, groupID string) (*domain.DeviceState, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required: %w", domain.ErrBadRequest)
	}
	if groupID == "" {
		if s.registry == nil {
			return nil, fmt.Errorf("device registry not configured: %w", domain.ErrMisconfigured)
		}
		var err error
		if groupID, err = s.registry.GroupOf(ctx, deviceID); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, groupID, deviceID)
}

func (s *service) List(ctx context.Context, groupID string) ([]domain.DeviceState, error) {
	if groupID == "" {
		return nil, fmt.Errorf("group id is required: %w", domain.ErrBadRequest)
	}
	return s.repo.ListByGroup(ctx, groupID)
}
