package actuator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hairizuan-noorazman/desktop-automation/action"
)

// DriverError is an error response from the native driver daemon.
type DriverError struct {
	StatusCode int
	Message    string
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver error (%d): %s", e.StatusCode, e.Message)
}

// RemoteActuator talks to the native driver daemon over HTTP. The daemon
// owns the OS-specific screenshot and input machinery; this client only
// relays primitives.
type RemoteActuator struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteActuator creates a client for the driver daemon at baseURL.
func NewRemoteActuator(baseURL string, timeout time.Duration) *RemoteActuator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteActuator{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type screenshotResponse struct {
	Image              string  `json:"image"`
	MediaType          string  `json:"media_type"`
	OriginalWidth      int     `json:"original_width"`
	OriginalHeight     int     `json:"original_height"`
	ResizedWidth       int     `json:"resized_width"`
	ResizedHeight      int     `json:"resized_height"`
	ScaleFactor        float64 `json:"scale_factor"`
	DisplayScaleFactor float64 `json:"display_scale_factor"`
	MonitorID          int     `json:"monitor_id"`
}

// inputRequest is the daemon's single input endpoint payload. Only the
// fields for the given type are set.
type inputRequest struct {
	Type      string `json:"type"`
	X         int    `json:"x,omitempty"`
	Y         int    `json:"y,omitempty"`
	EndX      int    `json:"end_x,omitempty"`
	EndY      int    `json:"end_y,omitempty"`
	Button    string `json:"button,omitempty"`
	Clicks    int    `json:"clicks,omitempty"`
	Down      *bool  `json:"down,omitempty"`
	Text      string `json:"text,omitempty"`
	Direction string `json:"direction,omitempty"`
	Amount    int    `json:"amount,omitempty"`
}

// Capture fetches a screenshot from the daemon.
func (r *RemoteActuator) Capture(ctx context.Context) (*Screenshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/screenshot", nil)
	if err != nil {
		return nil, err
	}

	body, err := r.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	var resp screenshotResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode screenshot response: %w", err)
	}

	image, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot image: %w", err)
	}

	mediaType := resp.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}

	return &Screenshot{
		Image:              image,
		MediaType:          mediaType,
		OriginalWidth:      resp.OriginalWidth,
		OriginalHeight:     resp.OriginalHeight,
		ResizedWidth:       resp.ResizedWidth,
		ResizedHeight:      resp.ResizedHeight,
		ScaleFactor:        resp.ScaleFactor,
		DisplayScaleFactor: resp.DisplayScaleFactor,
		MonitorID:          resp.MonitorID,
	}, nil
}

// Click performs a click at physical coordinates.
func (r *RemoteActuator) Click(ctx context.Context, x, y int, kind action.Kind) error {
	req := inputRequest{Type: "click", X: x, Y: y, Button: "left", Clicks: 1}
	switch kind {
	case action.KindRightClick:
		req.Button = "right"
	case action.KindMiddleClick:
		req.Button = "middle"
	case action.KindDoubleClick:
		req.Clicks = 2
	case action.KindTripleClick:
		req.Clicks = 3
	}
	return r.input(ctx, req)
}

// Drag performs a left-button drag between physical coordinates.
func (r *RemoteActuator) Drag(ctx context.Context, x1, y1, x2, y2 int) error {
	return r.input(ctx, inputRequest{Type: "drag", X: x1, Y: y1, EndX: x2, EndY: y2})
}

// MouseMove moves the cursor to physical coordinates.
func (r *RemoteActuator) MouseMove(ctx context.Context, x, y int) error {
	return r.input(ctx, inputRequest{Type: "move", X: x, Y: y})
}

// MouseButton presses or releases the left button at physical
// coordinates.
func (r *RemoteActuator) MouseButton(ctx context.Context, x, y int, down bool) error {
	return r.input(ctx, inputRequest{Type: "button", X: x, Y: y, Down: &down})
}

// Type sends literal text input.
func (r *RemoteActuator) Type(ctx context.Context, text string) error {
	return r.input(ctx, inputRequest{Type: "type", Text: text})
}

// Key sends a key chord such as "ctrl+s".
func (r *RemoteActuator) Key(ctx context.Context, text string) error {
	return r.input(ctx, inputRequest{Type: "key", Text: text})
}

// Scroll scrolls at physical coordinates.
func (r *RemoteActuator) Scroll(ctx context.Context, x, y int, direction action.ScrollDirection, amount int) error {
	return r.input(ctx, inputRequest{
		Type:      "scroll",
		X:         x,
		Y:         y,
		Direction: string(direction),
		Amount:    amount,
	})
}

// Wait sleeps locally; the daemon is not involved. Returns false when
// the context was cancelled before the duration elapsed.
func (r *RemoteActuator) Wait(ctx context.Context, ms int) (bool, error) {
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// HoldKey presses or releases a modifier key.
func (r *RemoteActuator) HoldKey(ctx context.Context, name string, down bool) error {
	return r.input(ctx, inputRequest{Type: "hold_key", Text: name, Down: &down})
}

func (r *RemoteActuator) input(ctx context.Context, payload inputRequest) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal input request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/input", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := r.do(req); err != nil {
		return fmt.Errorf("input %s failed: %w", payload.Type, err)
	}
	return nil
}

func (r *RemoteActuator) do(req *http.Request) ([]byte, error) {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read driver response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, &DriverError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return nil, &DriverError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	return body, nil
}
