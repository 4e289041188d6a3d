package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pushFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chat_push_failures_total",
	Help: "Total push gateway deliveries that failed",
})

// Gateway fans a notification out to the users' registered devices.
// Delivery is best-effort: callers must never fail a write because a
// notification could not be sent.
type Gateway interface {
	Notify(ctx context.Context, userIDs []uint64, title, body string, data map[string]interface{}) error
}

// Client is an HTTP client for the push notification gateway
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewClient creates a push gateway client; the timeout bounds every call so
// a slow gateway cannot stall request handling.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

// Enabled reports whether a gateway endpoint is configured
func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

type notifyRequest struct {
	UserIDs []uint64               `json:"user_ids"`
	Title   string                 `json:"title"`
	Body    string                 `json:"body"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Notify posts one fan-out request to the gateway. Fire-and-forget: the
// gateway resolves device tokens and handles its own retries.
func (c *Client) Notify(ctx context.Context, userIDs []uint64, title, body string, data map[string]interface{}) error {
	if !c.Enabled() || len(userIDs) == 0 {
		return nil
	}

	payload, err := json.Marshal(notifyRequest{
		UserIDs: userIDs,
		Title:   title,
		Body:    body,
		Data:    data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pushFailures.Inc()
		return fmt.Errorf("push gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		pushFailures.Inc()
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}
	return nil
}
