package domain

import "time"

// DeviceState is the latest known state of one device. It is partitioned by
// GroupID and keyed by DeviceID within the group.
type DeviceState struct {
	DeviceID           string    `json:"deviceId" dynamodbav:"device_id"`
	GroupID            string    `json:"farmID" dynamodbav:"group_id"`
	ObservedAt         time.Time `json:"observedAt" dynamodbav:"observed_at"`
	ConnectionDeviceID string    `json:"connectionDeviceId,omitempty" dynamodbav:"connection_device_id,omitempty"`
	Location           *Location `json:"location,omitempty" dynamodbav:"location,omitempty"`
	BatteryLevel       *float64  `json:"battery_level,omitempty" dynamodbav:"battery_level,omitempty"`
	SignalQuality      *float64  `json:"signal_quality,omitempty" dynamodbav:"signal_quality,omitempty"`
	Extra              *Extra    `json:"extra,omitempty" dynamodbav:"extra,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// Location holds sign-corrected coordinates. Absent readings stay nil.
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty" dynamodbav:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" dynamodbav:"longitude,omitempty"`
	Heading   *float64 `json:"direction,omitempty" dynamodbav:"direction,omitempty"`
}

// Extra holds secondary telemetry fields.
type Extra struct {
	Bands           []string `json:"bands,omitempty" dynamodbav:"bands,omitempty"`
	WakeReason      *string  `json:"wakeup_reason,omitempty" dynamodbav:"wakeup_reason,omitempty"`
	SatelliteCount  *int     `json:"gnss_satnum,omitempty" dynamodbav:"gnss_satnum,omitempty"`
	FirmwareVersion *string  `json:"app_version,omitempty" dynamodbav:"app_version,omitempty"`
	SIMID           *string  `json:"idESim,omitempty" dynamodbav:"id_esim,omitempty"`
	RSRP            *float64 `json:"rsrp,omitempty" dynamodbav:"rsrp,omitempty"`
}

// IsEmpty reports whether no coordinate was reported.
func (l *Location) IsEmpty() bool {
	return l == nil || (l.Latitude == nil && l.Longitude == nil && l.Heading == nil)
}

// IsEmpty reports whether no secondary field was reported.
func (e *Extra) IsEmpty() bool {
	return e == nil || (len(e.Bands) == 0 && e.WakeReason == nil && e.SatelliteCount == nil &&
		e.FirmwareVersion == nil && e.SIMID == nil && e.RSRP == nil)
}
