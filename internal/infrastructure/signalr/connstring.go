package signalr

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/farm-telemetry/internal/domain"
)

// ConnectionString is the parsed form of
// "Endpoint=https://<name>.service.signalr.net;AccessKey=<key>;Version=1.0;".
type ConnectionString struct {
	Endpoint  string
	AccessKey string
}

// ParseConnectionString splits the key=value pairs and checks the required ones.
func ParseConnectionString(raw string) (ConnectionString, error) {
	if strings.TrimSpace(raw) == "" {
		return ConnectionString{}, fmt.Errorf("signalr connection string is empty: %w", domain.ErrMisconfigured)
	}
	parts := map[string]string{}
	for _, part := range strings.Split(raw, ";") {
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return ConnectionString{}, fmt.Errorf("signalr connection string segment %q has no '=': %w", k, domain.ErrMisconfigured)
		}
		parts[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	cs := ConnectionString{
		Endpoint:  strings.TrimRight(parts["endpoint"], "/"),
		AccessKey: parts["accesskey"],
	}
	if cs.Endpoint == "" {
		return ConnectionString{}, fmt.Errorf("signalr connection string has no Endpoint: %w", domain.ErrMisconfigured)
	}
	if cs.AccessKey == "" {
		return ConnectionString{}, fmt.Errorf("signalr connection string has no AccessKey: %w", domain.ErrMisconfigured)
	}
	u, err := url.Parse(cs.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ConnectionString{}, fmt.Errorf("signalr endpoint %q is not an absolute URL: %w", cs.Endpoint, domain.ErrMisconfigured)
	}
	if port := parts["port"]; port != "" && u.Port() == "" {
		u.Host = u.Host + ":" + port
		cs.Endpoint = u.String()
	}
	return cs, nil
}
