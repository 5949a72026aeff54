// Package registry resolves a device's group through the external device
// registry service.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/farm-telemetry/internal/domain"
)

// Client looks up device records at {baseURL}/devices/{deviceId}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a registry client. An empty baseURL is allowed so the
// API can start without a registry; lookups then fail as misconfigured.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type deviceRecord struct {
	FarmID    string `json:"farmId"`
	FarmIDAlt string `json:"farmID"`
	GroupID   string `json:"groupId"`
}

func (r deviceRecord) group() string {
	for _, g := range []string{r.FarmID, r.FarmIDAlt, r.GroupID} {
		if g != "" {
			return g
		}
	}
	return ""
}

// GroupOf returns the group id registered for deviceID. A nil client
// reports ErrMisconfigured like an unset base URL.
func (c *Client) GroupOf(ctx context.Context, deviceID string) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("DEVICE_REGISTRY_URL is not set: %w", domain.ErrMisconfigured)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/devices/"+url.PathEscape(deviceID), nil)
	if err != nil {
		return "", fmt.Errorf("build registry request: %v: %w", err, domain.ErrMisconfigured)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("registry lookup %s: %w: %v", deviceID, domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("device %s: %w", deviceID, domain.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("registry lookup %s: status %d %s: %w", deviceID, resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrUnavailable)
	}

	var rec deviceRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&rec); err != nil {
		return "", fmt.Errorf("decode registry record %s: %w: %v", deviceID, domain.ErrUnavailable, err)
	}
	group := rec.group()
	if group == "" {
		return "", fmt.Errorf("device %s has no group: %w", deviceID, domain.ErrNotFound)
	}
	return group, nil
}
