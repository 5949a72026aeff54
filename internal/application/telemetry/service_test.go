package telemetry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/farm-telemetry/internal/config"
	"github.com/farm-telemetry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStateStore struct{ mock.Mock }

func (m *mockStateStore) Upsert(ctx context.Context, s *domain.DeviceState) error {
	return m.Called(ctx, s).Error(0)
}

func newSvc(repo *mockStateStore, opts Options) *service {
	svc := NewService(NewNormalizer(opts), repo, nil).(*service)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC) }
	return svc
}

var strictOpts = Options{GroupMode: config.GroupModeStrict, LatitudeSign: -1, LongitudeSign: -1}

func TestIngest_UpsertsNormalizedState(t *testing.T) {
	repo := &mockStateStore{}
	var stored *domain.DeviceState
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.DeviceState")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.DeviceState) }).
		Return(nil)

	svc := newSvc(repo, strictOpts)
	state, err := svc.Ingest(context.Background(),
		[]byte(`{"id":"dev-1","farmID":"F1","battery_level":55,"latitude":10.0}`),
		Envelope{EnqueuedAt: enqueued})
	require.NoError(t, err)

	require.NotNil(t, stored)
	assert.Same(t, state, stored)
	assert.Equal(t, "dev-1", stored.DeviceID)
	assert.Equal(t, "F1", stored.GroupID)
	assert.Equal(t, 55.0, *stored.BatteryLevel)
	assert.Equal(t, -10.0, *stored.Location.Latitude)
	assert.Nil(t, stored.Location.Longitude)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC), stored.UpdatedAt)
	repo.AssertExpectations(t)
}

func TestIngest_StrictModeNeverReachesStore(t *testing.T) {
	repo := &mockStateStore{}
	svc := newSvc(repo, strictOpts)

	_, err := svc.Ingest(context.Background(), []byte(`{"id":"dev-1","battery_level":20}`), Envelope{})
	assert.ErrorIs(t, err, ErrMissingGroup)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestIngest_FallbackModePersistsUnderDefaultGroup(t *testing.T) {
	repo := &mockStateStore{}
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(s *domain.DeviceState) bool {
		return s.GroupID == "F-default"
	})).Return(nil)

	svc := newSvc(repo, Options{GroupMode: config.GroupModeFallback, DefaultGroupID: "F-default", LatitudeSign: -1, LongitudeSign: -1})
	_, err := svc.Ingest(context.Background(), []byte(`{"id":"dev-1"}`), Envelope{})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestIngest_MalformedBody(t *testing.T) {
	repo := &mockStateStore{}
	svc := newSvc(repo, strictOpts)

	_, err := svc.Ingest(context.Background(), []byte(`{"id":`), Envelope{})
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestIngest_StoreFaultPropagates(t *testing.T) {
	repo := &mockStateStore{}
	repo.On("Upsert", mock.Anything, mock.Anything).Return(fmt.Errorf("put: %w", domain.ErrUnavailable))

	svc := newSvc(repo, strictOpts)
	_, err := svc.Ingest(context.Background(), []byte(`{"id":"dev-1","farmID":"F1"}`), Envelope{})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
