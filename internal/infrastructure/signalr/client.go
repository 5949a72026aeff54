package signalr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/farm-telemetry/internal/domain"
	jwtinfra "github.com/farm-telemetry/internal/infrastructure/jwt"
)

const maxResponseBody = 64 << 10

// RejectedError is a non-2xx answer from the service REST API.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("signalr rejected request: %d - %s", e.StatusCode, e.Body)
}

// ConnectionInfo is what a client needs to open a session with the hub.
type ConnectionInfo struct {
	URL         string `json:"url"`
	AccessToken string `json:"accessToken"`
}

// Client talks to the SignalR service REST API for one hub. Every request is
// signed with a credential whose audience is that request's URL.
type Client struct {
	endpoint   string
	accessKey  []byte
	hub        string
	ttl        time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewClient builds a client from a connection string. timeout bounds every
// outbound call.
func NewClient(connectionString, hub string, ttl, timeout time.Duration) (*Client, error) {
	cs, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}
	if hub == "" {
		return nil, fmt.Errorf("signalr hub name is empty: %w", domain.ErrMisconfigured)
	}
	return &Client{
		endpoint:   cs.Endpoint,
		accessKey:  []byte(cs.AccessKey),
		hub:        hub,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}, nil
}

// UserGroupURL is the control-plane URL that adds a user to a group.
func (c *Client) UserGroupURL(userID, groupName string) string {
	return fmt.Sprintf("%s/api/v1/hubs/%s/users/%s/groups/%s",
		c.endpoint, url.PathEscape(c.hub), url.PathEscape(userID), url.PathEscape(groupName))
}

// ConnectionGroupURL is the control-plane URL that adds a connection to a group.
func (c *Client) ConnectionGroupURL(connectionID, groupName string) string {
	return fmt.Sprintf("%s/api/v1/hubs/%s/groups/%s/connections/%s",
		c.endpoint, url.PathEscape(c.hub), url.PathEscape(groupName), url.PathEscape(connectionID))
}

// GroupMessageURL is the data-plane URL that broadcasts to a group.
func (c *Client) GroupMessageURL(groupName string) string {
	return fmt.Sprintf("%s/api/v1/hubs/%s/groups/%s",
		c.endpoint, url.PathEscape(c.hub), url.PathEscape(groupName))
}

// AddToGroup issues PUT targetURL and returns the 2xx status, or a
// *RejectedError carrying the service's status and body.
func (c *Client) AddToGroup(ctx context.Context, targetURL string) (int, error) {
	return c.do(ctx, http.MethodPut, targetURL, nil)
}

// Publish sends the notification to every connection in its group. It does not
// wait for subscriber acknowledgement.
func (c *Client) Publish(ctx context.Context, n domain.ChangeNotification) error {
	body, err := json.Marshal(struct {
		Target    string                `json:"target"`
		Arguments []domain.DeviceUpdate `json:"arguments"`
	}{Target: n.Target, Arguments: n.Arguments})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, c.GroupMessageURL(n.GroupName), body)
	return err
}

// ConnectionInfo builds the client negotiate response for the hub.
func (c *Client) ConnectionInfo(userID string) (ConnectionInfo, error) {
	clientURL := fmt.Sprintf("%s/client/?hub=%s", c.endpoint, url.QueryEscape(c.hub))
	token, err := jwtinfra.MintFor(clientURL, userID, c.accessKey, c.ttl, c.now())
	if err != nil {
		return ConnectionInfo{}, fmt.Errorf("mint client token: %w", err)
	}
	return ConnectionInfo{URL: clientURL, AccessToken: token}, nil
}

func (c *Client) do(ctx context.Context, method, targetURL string, body []byte) (int, error) {
	token, err := jwtinfra.Mint(targetURL, c.accessKey, c.ttl, c.now())
	if err != nil {
		return 0, fmt.Errorf("mint management credential: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, targetURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w: %v", method, targetURL, domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return resp.StatusCode, &RejectedError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
	return resp.StatusCode, nil
}
