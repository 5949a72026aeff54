package domain

import "time"

const (
	// TargetUpdateDeviceState is the client method invoked for every state change.
	TargetUpdateDeviceState = "updateDeviceState"

	groupNamePrefix = "group_"
)

// GroupName returns the transport group that subscribers of groupID join.
func GroupName(groupID string) string {
	return groupNamePrefix + groupID
}

// DeviceUpdate is the payload delivered to subscribers.
type DeviceUpdate struct {
	DeviceID      string    `json:"deviceId"`
	GroupID       string    `json:"farmID"`
	ObservedAt    time.Time `json:"observedAt"`
	Location      *Location `json:"location,omitempty"`
	BatteryLevel  *float64  `json:"battery_level,omitempty"`
	SignalQuality *float64  `json:"signal_quality,omitempty"`
	Extra         *Extra    `json:"extra,omitempty"`
	// DispatchedAt is the server time the notification was built, in Unix seconds.
	DispatchedAt float64 `json:"timestamp"`
}

// ChangeNotification is one fan-out message addressed to a single group.
type ChangeNotification struct {
	Target    string         `json:"target"`
	Arguments []DeviceUpdate `json:"arguments"`
	GroupName string         `json:"groupName"`
}

// NewChangeNotification builds the notification for a committed state.
func NewChangeNotification(s *DeviceState, dispatchedAt time.Time) ChangeNotification {
	return ChangeNotification{
		Target: TargetUpdateDeviceState,
		Arguments: []DeviceUpdate{{
			DeviceID:      s.DeviceID,
			GroupID:       s.GroupID,
			ObservedAt:    s.ObservedAt,
			Location:      s.Location,
			BatteryLevel:  s.BatteryLevel,
			SignalQuality: s.SignalQuality,
			Extra:         s.Extra,
			DispatchedAt:  float64(dispatchedAt.UnixNano()) / float64(time.Second),
		}},
		GroupName: GroupName(s.GroupID),
	}
}
