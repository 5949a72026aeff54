package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/farm-telemetry/internal/domain"
)

// Group resolution modes for telemetry without an explicit group field.
const (
	GroupModeStrict   = "strict"
	GroupModeFallback = "fallback"
)

// Notification transports for the change propagator.
const (
	TransportSignalR = "signalr"
	TransportSNS     = "sns"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	AWSMaxAttempts int
	DynamoTables   DynamoTables

	GroupMode      string
	DefaultGroupID string
	LatitudeSign   float64
	LongitudeSign  float64

	DeviceRegistryURL string

	SignalRConnectionString string
	SignalRHub              string
	CredentialTTL           time.Duration

	NotifyTransport string
	SNSTopicARN     string
	SNSRegion       string

	ServiceTokenSecret string
	OutboundTimeout    time.Duration
	RequestTimeout     time.Duration
	AllowedOrigins     []string // CORS allowed origins

	// signErr records an unparseable LATITUDE_SIGN or LONGITUDE_SIGN.
	signErr error
}

// DynamoTables holds the DynamoDB table names.
type DynamoTables struct {
	DeviceState       string
	LegacyDeviceState string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	latSign, latErr := getEnvSign("LATITUDE_SIGN", -1)
	lonSign, lonErr := getEnvSign("LONGITUDE_SIGN", -1)
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSMaxAttempts: getEnvInt("AWS_MAX_ATTEMPTS", 1),
		DynamoTables: DynamoTables{
			DeviceState:       getEnv("DYNAMO_TABLE_DEVICE_STATE", "device_state"),
			LegacyDeviceState: getEnv("DYNAMO_TABLE_LEGACY_DEVICE_STATE", ""),
		},
		GroupMode:               strings.ToLower(getEnv("GROUP_MODE", GroupModeStrict)),
		DefaultGroupID:          getEnv("DEFAULT_GROUP_ID", ""),
		LatitudeSign:            latSign,
		LongitudeSign:           lonSign,
		signErr:                 errors.Join(latErr, lonErr),
		DeviceRegistryURL:       getEnv("DEVICE_REGISTRY_URL", ""),
		SignalRConnectionString: getEnv("SIGNALR_CONNECTION_STRING", ""),
		SignalRHub:              getEnv("SIGNALR_HUB", "iboihub"),
		CredentialTTL:           getEnvDuration("CREDENTIAL_TTL", time.Hour),
		NotifyTransport:         strings.ToLower(getEnv("NOTIFY_TRANSPORT", TransportSignalR)),
		SNSTopicARN:             getEnv("SNS_TOPIC_ARN", ""),
		SNSRegion:               getEnv("SNS_REGION", "us-east-1"),
		ServiceTokenSecret:      getEnv("SERVICE_TOKEN_SECRET", ""),
		OutboundTimeout:         getEnvDuration("OUTBOUND_TIMEOUT", 10*time.Second),
		RequestTimeout:          getEnvDuration("REQUEST_TIMEOUT", 25*time.Second),
		AllowedOrigins:          strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// ValidateStore checks the settings every binary touching the state store needs.
func (c *Config) ValidateStore() error {
	if c.AWSRegion == "" {
		return fmt.Errorf("AWS_REGION is not set: %w", domain.ErrMisconfigured)
	}
	if c.DynamoTables.DeviceState == "" {
		return fmt.Errorf("DYNAMO_TABLE_DEVICE_STATE is not set: %w", domain.ErrMisconfigured)
	}
	return nil
}

// ValidateIngest checks the normalizer settings on top of ValidateStore.
func (c *Config) ValidateIngest() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	switch c.GroupMode {
	case GroupModeStrict:
	case GroupModeFallback:
		if c.DefaultGroupID == "" {
			return fmt.Errorf("GROUP_MODE=fallback requires DEFAULT_GROUP_ID: %w", domain.ErrMisconfigured)
		}
	default:
		return fmt.Errorf("unknown GROUP_MODE %q: %w", c.GroupMode, domain.ErrMisconfigured)
	}
	if c.signErr != nil {
		return fmt.Errorf("%w: %w", c.signErr, domain.ErrMisconfigured)
	}
	for name, v := range map[string]float64{"LATITUDE_SIGN": c.LatitudeSign, "LONGITUDE_SIGN": c.LongitudeSign} {
		if v != 1 && v != -1 {
			return fmt.Errorf("%s must be 1 or -1, got %v: %w", name, v, domain.ErrMisconfigured)
		}
	}
	return nil
}

// ValidatePropagator checks the selected notification transport is usable.
func (c *Config) ValidatePropagator() error {
	switch c.NotifyTransport {
	case TransportSignalR:
		if c.SignalRConnectionString == "" {
			return fmt.Errorf("SIGNALR_CONNECTION_STRING is not set: %w", domain.ErrMisconfigured)
		}
	case TransportSNS:
		if c.SNSTopicARN == "" {
			return fmt.Errorf("SNS_TOPIC_ARN is not set: %w", domain.ErrMisconfigured)
		}
	default:
		return fmt.Errorf("unknown NOTIFY_TRANSPORT %q: %w", c.NotifyTransport, domain.ErrMisconfigured)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvSign reads a sign-correction factor. Unlike the other getters it
// reports a value it cannot parse instead of using the fallback.
func getEnvSign(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s=%q is not a number", key, v)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
