package telemetry

import (
	"testing"
	"time"

	"github.com/farm-telemetry/internal/config"
	"github.com/farm-telemetry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var enqueued = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func strictNormalizer() *Normalizer {
	return NewNormalizer(Options{GroupMode: config.GroupModeStrict, LatitudeSign: -1, LongitudeSign: -1})
}

func normalize(t *testing.T, n *Normalizer, body string, env Envelope) (*domain.DeviceState, error) {
	t.Helper()
	raw, err := DecodePayload([]byte(body))
	require.NoError(t, err)
	return n.Normalize(raw, env)
}

func TestNormalize_FullEvent(t *testing.T) {
	s, err := normalize(t, strictNormalizer(),
		`{"id":"dev-1","farmID":"F1","battery_level":55,"latitude":10.0,"longitude":"-3.5","direction":90}`,
		Envelope{EnqueuedAt: enqueued, ConnectionDeviceID: "conn-1"})
	require.NoError(t, err)

	assert.Equal(t, "dev-1", s.DeviceID)
	assert.Equal(t, "F1", s.GroupID)
	assert.Equal(t, "conn-1", s.ConnectionDeviceID)
	assert.Equal(t, enqueued, s.ObservedAt)
	require.NotNil(t, s.BatteryLevel)
	assert.Equal(t, 55.0, *s.BatteryLevel)
	require.NotNil(t, s.Location)
	assert.Equal(t, -10.0, *s.Location.Latitude)
	assert.Equal(t, 3.5, *s.Location.Longitude)
	assert.Equal(t, 90.0, *s.Location.Heading)
	assert.Nil(t, s.SignalQuality)
	assert.Nil(t, s.Extra)
}

func TestNormalize_SignFactorsAreConfigurable(t *testing.T) {
	n := NewNormalizer(Options{GroupMode: config.GroupModeStrict, LatitudeSign: 1, LongitudeSign: -1})
	s, err := normalize(t, n, `{"id":"d","farmID":"F","latitude":10,"longitude":20}`, Envelope{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, *s.Location.Latitude)
	assert.Equal(t, -20.0, *s.Location.Longitude)
}

func TestNormalize_FallsBackToConnectionIdentity(t *testing.T) {
	s, err := normalize(t, strictNormalizer(), `{"farmID":"F1"}`, Envelope{ConnectionDeviceID: "conn-7"})
	require.NoError(t, err)
	assert.Equal(t, "conn-7", s.DeviceID)
}

func TestNormalize_AliasKeys(t *testing.T) {
	s, err := normalize(t, strictNormalizer(), `{"deviceId":"d2","groupId":"G","heading":45,"csq":17}`, Envelope{})
	require.NoError(t, err)
	assert.Equal(t, "d2", s.DeviceID)
	assert.Equal(t, "G", s.GroupID)
	assert.Equal(t, 45.0, *s.Location.Heading)
	assert.Nil(t, s.Location.Latitude)
	assert.Equal(t, 17.0, *s.SignalQuality)
}

func TestNormalize_MissingIdentity(t *testing.T) {
	_, err := normalize(t, strictNormalizer(), `{"farmID":"F1"}`, Envelope{})
	assert.ErrorIs(t, err, ErrMissingIdentity)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestNormalize_MissingGroup_StrictRejects(t *testing.T) {
	_, err := normalize(t, strictNormalizer(), `{"id":"dev-1"}`, Envelope{})
	assert.ErrorIs(t, err, ErrMissingGroup)
}

func TestNormalize_MissingGroup_FallbackUsesDefault(t *testing.T) {
	n := NewNormalizer(Options{GroupMode: config.GroupModeFallback, DefaultGroupID: "F-default", LatitudeSign: -1, LongitudeSign: -1})
	s, err := normalize(t, n, `{"id":"dev-1"}`, Envelope{})
	require.NoError(t, err)
	assert.Equal(t, "F-default", s.GroupID)
}

func TestNormalize_ExplicitGroupWinsInFallbackMode(t *testing.T) {
	n := NewNormalizer(Options{GroupMode: config.GroupModeFallback, DefaultGroupID: "F-default", LatitudeSign: -1, LongitudeSign: -1})
	s, err := normalize(t, n, `{"id":"dev-1","farmId":"F9"}`, Envelope{})
	require.NoError(t, err)
	assert.Equal(t, "F9", s.GroupID)
}

func TestNormalize_MalformedNumericFails(t *testing.T) {
	for _, body := range []string{
		`{"id":"d","farmID":"F","latitude":"north"}`,
		`{"id":"d","farmID":"F","battery_level":true}`,
		`{"id":"d","farmID":"F","gnss_satnum":4.5}`,
		`{"id":"d","farmID":"F","bands":{"a":1}}`,
		`{"id":"d","farmID":"F","ts":"yesterday"}`,
		`{"id":"d","farmID":"F","ts":1e300}`,
		`{"id":"d","farmID":"F","ts":253402300800000}`,
		`{"id":"d","farmID":"F","timestamp":"not-a-time"}`,
	} {
		_, err := normalize(t, strictNormalizer(), body, Envelope{})
		assert.ErrorIs(t, err, ErrMalformedField, body)
		assert.ErrorIs(t, err, domain.ErrMalformedInput, body)
	}
}

func TestNormalize_MissingNumericsAreOmitted(t *testing.T) {
	s, err := normalize(t, strictNormalizer(), `{"id":"d","farmID":"F","latitude":null}`, Envelope{})
	require.NoError(t, err)
	assert.Nil(t, s.Location)
	assert.Nil(t, s.BatteryLevel)
}

func TestNormalize_ZeroIsKept(t *testing.T) {
	s, err := normalize(t, strictNormalizer(), `{"id":"d","farmID":"F","battery_level":0,"latitude":0}`, Envelope{})
	require.NoError(t, err)
	require.NotNil(t, s.BatteryLevel)
	assert.Equal(t, 0.0, *s.BatteryLevel)
	require.NotNil(t, s.Location)
	assert.Zero(t, *s.Location.Latitude)
}

func TestNormalize_ExtraFields(t *testing.T) {
	s, err := normalize(t, strictNormalizer(),
		`{"id":"d","farmID":"F","rsrp":-95,"bands":"B3, B20","wakeup_reason":"timer","gnss_satnum":7,"app_version":"1.4.2","idESim":"8944"}`,
		Envelope{})
	require.NoError(t, err)
	require.NotNil(t, s.Extra)
	assert.Equal(t, -95.0, *s.Extra.RSRP)
	assert.Equal(t, []string{"B3", "B20"}, s.Extra.Bands)
	assert.Equal(t, "timer", *s.Extra.WakeReason)
	assert.Equal(t, 7, *s.Extra.SatelliteCount)
	assert.Equal(t, "1.4.2", *s.Extra.FirmwareVersion)
	assert.Equal(t, "8944", *s.Extra.SIMID)
}

func TestNormalize_BandsList(t *testing.T) {
	s, err := normalize(t, strictNormalizer(), `{"id":"d","farmID":"F","bands":["B3",20]}`, Envelope{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B3", "20"}, s.Extra.Bands)
}

func TestNormalize_ObservedAtFromDeviceClock(t *testing.T) {
	n := strictNormalizer()

	s, err := normalize(t, n, `{"id":"d","farmID":"F","ts":1700000000}`, Envelope{EnqueuedAt: enqueued})
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), s.ObservedAt)

	s, err = normalize(t, n, `{"id":"d","farmID":"F","ts":1700000000123}`, Envelope{EnqueuedAt: enqueued})
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), s.ObservedAt)

	s, err = normalize(t, n, `{"id":"d","farmID":"F","timestamp":"2024-04-30T08:00:00+02:00"}`, Envelope{EnqueuedAt: enqueued})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 30, 6, 0, 0, 0, time.UTC), s.ObservedAt)
}

func TestDecodePayload_Rejects(t *testing.T) {
	for _, body := range []string{``, `not json`, `[1,2]`, `null`} {
		_, err := DecodePayload([]byte(body))
		assert.ErrorIs(t, err, domain.ErrMalformedInput, body)
	}
}
