package devicestate

import (
	"context"
	"fmt"
	"testing"

	"github.com/farm-telemetry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStateStore struct{ mock.Mock }

func (m *mockStateStore) Get(ctx context.Context, groupID, deviceID string) (*domain.DeviceState, error) {
	args := m.Called(ctx, groupID, deviceID)
	if s, _ := args.Get(0).(*domain.DeviceState); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStateStore) ListByGroup(ctx context.Context, groupID string) ([]domain.DeviceState, error) {
	args := m.Called(ctx, groupID)
	if l, _ := args.Get(0).([]domain.DeviceState); l != nil {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRegistry struct{ mock.Mock }

func (m *mockRegistry) GroupOf(ctx context.Context, deviceID string) (string, error) {
	args := m.Called(ctx, deviceID)
	return args.String(0), args.Error(1)
}

// --- tests ---

func TestGet_WithGroupSkipsRegistry(t *testing.T) {
	repo, reg := &mockStateStore{}, &mockRegistry{}
	repo.On("Get", mock.Anything, "F1", "dev-1").Return(&domain.DeviceState{DeviceID: "dev-1", GroupID: "F1"}, nil)

	s, err := NewService(repo, reg).Get(context.Background(), "dev-1", "F1")
	require.NoError(t, err)
	assert.Equal(t, "F1", s.GroupID)
	reg.AssertNotCalled(t, "GroupOf", mock.Anything, mock.Anything)
}

func TestGet_ResolvesGroupThroughRegistry(t *testing.T) {
	repo, reg := &mockStateStore{}, &mockRegistry{}
	reg.On("GroupOf", mock.Anything, "dev-1").Return("F7", nil)
	repo.On("Get", mock.Anything, "F7", "dev-1").Return(&domain.DeviceState{DeviceID: "dev-1", GroupID: "F7"}, nil)

	s, err := NewService(repo, reg).Get(context.Background(), "dev-1", "")
	require.NoError(t, err)
	assert.Equal(t, "F7", s.GroupID)
	repo.AssertExpectations(t)
}

func TestGet_RegistryNotFoundPropagates(t *testing.T) {
	repo, reg := &mockStateStore{}, &mockRegistry{}
	reg.On("GroupOf", mock.Anything, "ghost").Return("", fmt.Errorf("device ghost: %w", domain.ErrNotFound))

	_, err := NewService(repo, reg).Get(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestGet_NoRegistryIsMisconfigured(t *testing.T) {
	_, err := NewService(&mockStateStore{}, nil).Get(context.Background(), "dev-1", "")
	assert.ErrorIs(t, err, domain.ErrMisconfigured)
}

func TestGet_MissingDeviceID(t *testing.T) {
	_, err := NewService(&mockStateStore{}, &mockRegistry{}).Get(context.Background(), "", "F1")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestGet_StoreFaultIsNotNotFound(t *testing.T) {
	repo := &mockStateStore{}
	repo.On("Get", mock.Anything, "F1", "dev-1").Return(nil, fmt.Errorf("get: %w", domain.ErrUnavailable))

	_, err := NewService(repo, &mockRegistry{}).Get(context.Background(), "dev-1", "F1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestList(t *testing.T) {
	repo := &mockStateStore{}
	repo.On("ListByGroup", mock.Anything, "F1").Return([]domain.DeviceState{{DeviceID: "a"}, {DeviceID: "b"}}, nil)

	list, err := NewService(repo, nil).List(context.Background(), "F1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestList_MissingGroup(t *testing.T) {
	_, err := NewService(&mockStateStore{}, nil).List(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}
