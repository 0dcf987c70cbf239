package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hairizuan-noorazman/desktop-automation/logger"
)

// FailurePayload is the notification body sent to the configured webhook
// when a scenario fails.
type FailurePayload struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Scenario  struct {
		ID    uuid.UUID `json:"id"`
		Title string    `json:"title"`
	} `json:"scenario"`
	Error struct {
		Message              string `json:"message"`
		FailedAtAction       string `json:"failedAtAction,omitempty"`
		LastSuccessfulAction string `json:"lastSuccessfulAction,omitempty"`
		CompletedActions     int    `json:"completedActions"`
	} `json:"error"`
}

// Client posts failure notifications to a configured webhook URL.
// Delivery is best-effort; a failed post is logged, never retried.
type Client struct {
	url        string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a webhook client. An empty URL disables delivery.
func NewClient(url string, log logger.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: log,
	}
}

// Enabled reports whether a webhook URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// NotifyFailure delivers one failure payload.
func (c *Client) NotifyFailure(ctx context.Context, payload FailurePayload) error {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "webhook delivery failed", map[string]interface{}{
			"error": err.Error(),
			"url":   c.url,
		})
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.logger.Warn(ctx, "webhook delivery rejected", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    c.url,
		})
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
