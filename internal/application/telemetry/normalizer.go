package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/farm-telemetry/internal/config"
	"github.com/farm-telemetry/internal/domain"
)

var (
	ErrMissingIdentity = fmt.Errorf("missing device identity: %w", domain.ErrBadRequest)
	ErrMissingGroup    = fmt.Errorf("missing group: %w", domain.ErrBadRequest)
	ErrMalformedField  = fmt.Errorf("malformed field: %w", domain.ErrMalformedInput)
)

// Payload field names accepted from the fleet, in lookup order.
var (
	deviceIDKeys      = []string{"id", "deviceId", "device_id"}
	groupIDKeys       = []string{"farmID", "farmId", "groupId"}
	headingKeys       = []string{"direction", "heading"}
	batteryKeys       = []string{"battery_level", "batteryLevel"}
	signalQualityKeys = []string{"csq", "signal_quality"}
)

// Options selects how the normalizer treats events without a group and
// which sign correction the fleet needs.
type Options struct {
	GroupMode      string
	DefaultGroupID string
	LatitudeSign   float64
	LongitudeSign  float64
}

// OptionsFromConfig maps the validated ingest configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		GroupMode:      cfg.GroupMode,
		DefaultGroupID: cfg.DefaultGroupID,
		LatitudeSign:   cfg.LatitudeSign,
		LongitudeSign:  cfg.LongitudeSign,
	}
}

// Envelope is the transport metadata delivered alongside a payload.
type Envelope struct {
	EnqueuedAt         time.Time
	ConnectionDeviceID string
}

// Normalizer converts raw telemetry maps into canonical device states.
// It has no side effects.
type Normalizer struct {
	opts Options
}

func NewNormalizer(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// DecodePayload parses a UTF-8 JSON object, keeping numbers as json.Number.
func DecodePayload(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode telemetry: %v: %w", err, domain.ErrMalformedInput)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode telemetry: payload is not an object: %w", domain.ErrMalformedInput)
	}
	return raw, nil
}

// Normalize builds the device state for one event.
func (n *Normalizer) Normalize(raw map[string]any, env Envelope) (*domain.DeviceState, error) {
	deviceID, err := stringField(raw, deviceIDKeys...)
	if err != nil {
		return nil, err
	}
	if deviceID == "" {
		deviceID = strings.TrimSpace(env.ConnectionDeviceID)
	}
	if deviceID == "" {
		return nil, ErrMissingIdentity
	}

	groupID, err := stringField(raw, groupIDKeys...)
	if err != nil {
		return nil, err
	}
	if groupID == "" {
		if n.opts.GroupMode != config.GroupModeFallback || n.opts.DefaultGroupID == "" {
			return nil, fmt.Errorf("device %s: %w", deviceID, ErrMissingGroup)
		}
		groupID = n.opts.DefaultGroupID
	}

	observedAt, err := observedAt(raw, env.EnqueuedAt)
	if err != nil {
		return nil, err
	}

	state := &domain.DeviceState{
		DeviceID:           deviceID,
		GroupID:            groupID,
		ObservedAt:         observedAt,
		ConnectionDeviceID: env.ConnectionDeviceID,
	}

	loc := &domain.Location{}
	if loc.Latitude, err = floatField(raw, "latitude"); err != nil {
		return nil, err
	}
	if loc.Longitude, err = floatField(raw, "longitude"); err != nil {
		return nil, err
	}
	if loc.Heading, err = floatField(raw, headingKeys...); err != nil {
		return nil, err
	}
	loc.Latitude = scaled(loc.Latitude, n.opts.LatitudeSign)
	loc.Longitude = scaled(loc.Longitude, n.opts.LongitudeSign)
	if !loc.IsEmpty() {
		state.Location = loc
	}

	if state.BatteryLevel, err = floatField(raw, batteryKeys...); err != nil {
		return nil, err
	}
	if state.SignalQuality, err = floatField(raw, signalQualityKeys...); err != nil {
		return nil, err
	}

	extra, err := extraFields(raw)
	if err != nil {
		return nil, err
	}
	if !extra.IsEmpty() {
		state.Extra = extra
	}
	return state, nil
}

func extraFields(raw map[string]any) (*domain.Extra, error) {
	var (
		e   domain.Extra
		err error
	)
	if e.RSRP, err = floatField(raw, "rsrp"); err != nil {
		return nil, err
	}
	if e.SatelliteCount, err = intField(raw, "gnss_satnum"); err != nil {
		return nil, err
	}
	if e.Bands, err = listField(raw, "bands"); err != nil {
		return nil, err
	}
	if e.WakeReason, err = optionalString(raw, "wakeup_reason"); err != nil {
		return nil, err
	}
	if e.FirmwareVersion, err = optionalString(raw, "app_version"); err != nil {
		return nil, err
	}
	if e.SIMID, err = optionalString(raw, "idESim"); err != nil {
		return nil, err
	}
	return &e, nil
}

// lookup returns the first key whose value is present and not null.
func lookup(raw map[string]any, keys ...string) (string, any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return k, v, true
		}
	}
	return "", nil, false
}

func malformed(key string, v any) error {
	return fmt.Errorf("%q=%v: %w", key, v, ErrMalformedField)
}

func stringField(raw map[string]any, keys ...string) (string, error) {
	key, v, ok := lookup(raw, keys...)
	if !ok {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", malformed(key, v)
	}
}

func optionalString(raw map[string]any, keys ...string) (*string, error) {
	s, err := stringField(raw, keys...)
	if err != nil || s == "" {
		return nil, err
	}
	return &s, nil
}

func floatField(raw map[string]any, keys ...string) (*float64, error) {
	key, v, ok := lookup(raw, keys...)
	if !ok {
		return nil, nil
	}
	f, err := toFloat(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, malformed(key, v)
	}
	return &f, nil
}

func intField(raw map[string]any, keys ...string) (*int, error) {
	f, err := floatField(raw, keys...)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		key, v, _ := lookup(raw, keys...)
		return nil, malformed(key, v)
	}
	i := int(*f)
	return &i, nil
}

// listField accepts either a JSON array or a comma separated string.
func listField(raw map[string]any, keys ...string) ([]string, error) {
	key, v, ok := lookup(raw, keys...)
	if !ok {
		return nil, nil
	}
	var out []string
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []any:
		for _, item := range t {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case json.Number:
				out = append(out, it.String())
			case float64:
				out = append(out, strconv.FormatFloat(it, 'f', -1, 64))
			default:
				return nil, malformed(key, v)
			}
		}
	default:
		return nil, malformed(key, v)
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case json.Number:
		return t.Float64()
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, errors.New("not a number")
	}
}

func scaled(v *float64, sign float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v * sign
	return &out
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1e12

// maxEpochMillis is 9999-12-31T23:59:59.999Z; larger "ts" values are rejected.
const maxEpochMillis = 253402300799999

// observedAt prefers the device clock: "ts" in epoch seconds or
// milliseconds, then "timestamp" in RFC 3339. The enqueue time is used
// when the device reports neither.
func observedAt(raw map[string]any, enqueuedAt time.Time) (time.Time, error) {
	if key, v, ok := lookup(raw, "ts"); ok {
		f, err := toFloat(v)
		if err != nil || f <= 0 || f > maxEpochMillis || math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, malformed(key, v)
		}
		if f >= epochMillisThreshold {
			return time.UnixMilli(int64(f)).UTC(), nil
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
	}
	if key, v, ok := lookup(raw, "timestamp"); ok {
		s, isString := v.(string)
		if !isString {
			return time.Time{}, malformed(key, v)
		}
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			return time.Time{}, malformed(key, v)
		}
		return t.UTC(), nil
	}
	return enqueuedAt.UTC(), nil
}
