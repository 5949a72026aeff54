package membership

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farm-telemetry/internal/domain"
	"github.com/farm-telemetry/internal/pkg/validate"
)

var (
	ErrGroupRequired    = fmt.Errorf("group id is required: %w", domain.ErrBadRequest)
	ErrIdentityRequired = fmt.Errorf("user id or connection id is required: %w", domain.ErrBadRequest)
)

type Service interface {
	// AddToGroup subscribes a user (preferred) or a single connection to the
	// transport group of req.GroupID.
	AddToGroup(ctx context.Context, req domain.GroupMembershipRequest) (*domain.GroupMembershipResult, error)
}

// controlPlane is the management API of the fan-out transport.
type controlPlane interface {
	UserGroupURL(userID, groupName string) string
	ConnectionGroupURL(connectionID, groupName string) string
	AddToGroup(ctx context.Context, targetURL string) (int, error)
}

type service struct {
	cp  controlPlane
	log *slog.Logger
}

// NewService accepts a nil control plane so the API can start without
// transport credentials; every request then fails as misconfigured.
func NewService(cp controlPlane, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{cp: cp, log: log}
}

func (s *service) AddToGroup(ctx context.Context, req domain.GroupMembershipRequest) (*domain.GroupMembershipResult, error) {
	if req.GroupID == "" {
		return nil, ErrGroupRequired
	}
	if req.UserID == "" && req.ConnectionID == "" {
		return nil, ErrIdentityRequired
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if s.cp == nil {
		return nil, fmt.Errorf("transport control plane: %w", domain.ErrMisconfigured)
	}

	groupName := domain.GroupName(req.GroupID)
	var targetURL, identity string
	if req.UserID != "" {
		targetURL = s.cp.UserGroupURL(req.UserID, groupName)
		identity = "user " + req.UserID
	} else {
		targetURL = s.cp.ConnectionGroupURL(req.ConnectionID, groupName)
		identity = "connection " + req.ConnectionID
	}

	status, err := s.cp.AddToGroup(ctx, targetURL)
	if err != nil {
		s.log.Error("add to group failed", "identity", identity, "group", groupName, "audience", targetURL, "error", err)
		return nil, err
	}
	s.log.Info("added to group", "identity", identity, "group", groupName, "status", status)
	return &domain.GroupMembershipResult{StatusCode: status, Identity: identity, GroupName: groupName}, nil
}
