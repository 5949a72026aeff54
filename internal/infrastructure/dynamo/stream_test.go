package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalStreamImage_FullRecord(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"device_id":     events.NewStringAttribute("dev-1"),
		"group_id":      events.NewStringAttribute("F1"),
		"observed_at":   events.NewStringAttribute("2026-03-01T10:00:00Z"),
		"battery_level": events.NewNumberAttribute("0"),
		"location": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"latitude": events.NewNumberAttribute("-10.5"),
		}),
		"extra": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"bands":       events.NewListAttribute([]events.DynamoDBAttributeValue{events.NewStringAttribute("B3"), events.NewStringAttribute("B20")}),
			"gnss_satnum": events.NewNumberAttribute("7"),
		}),
	}

	s, err := UnmarshalStreamImage(image)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", s.DeviceID)
	assert.Equal(t, "F1", s.GroupID)
	assert.True(t, s.ObservedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	require.NotNil(t, s.BatteryLevel)
	assert.Equal(t, 0.0, *s.BatteryLevel)
	require.NotNil(t, s.Location)
	require.NotNil(t, s.Location.Latitude)
	assert.Equal(t, -10.5, *s.Location.Latitude)
	assert.Nil(t, s.Location.Longitude)
	require.NotNil(t, s.Extra)
	assert.Equal(t, []string{"B3", "B20"}, s.Extra.Bands)
	require.NotNil(t, s.Extra.SatelliteCount)
	assert.Equal(t, 7, *s.Extra.SatelliteCount)
}

func TestUnmarshalStreamImage_MissingGroupDecodesEmpty(t *testing.T) {
	s, err := UnmarshalStreamImage(map[string]events.DynamoDBAttributeValue{
		"device_id": events.NewStringAttribute("dev-1"),
	})
	require.NoError(t, err)
	assert.Empty(t, s.GroupID)
}

func TestUnmarshalStreamImage_WrongTypeFails(t *testing.T) {
	_, err := UnmarshalStreamImage(map[string]events.DynamoDBAttributeValue{
		"device_id":     events.NewStringAttribute("dev-1"),
		"battery_level": events.NewStringAttribute("not-a-number"),
	})
	assert.Error(t, err)
}
