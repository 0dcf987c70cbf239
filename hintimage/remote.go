package hintimage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteMatcher delegates template matching to the native driver
// daemon, which carries the image-processing dependency.
type RemoteMatcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteMatcher creates a matcher client for the daemon at baseURL.
func NewRemoteMatcher(baseURL string, timeout time.Duration) *RemoteMatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteMatcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type matchRequest struct {
	Screenshot  string          `json:"screenshot"`
	Templates   []matchTemplate `json:"templates"`
	ScaleFactor float64         `json:"scale_factor"`
	Threshold   float64         `json:"threshold"`
}

type matchTemplate struct {
	Index    int    `json:"index"`
	FileName string `json:"file_name"`
	Data     string `json:"data"`
}

type matchResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		FileName       string  `json:"file_name"`
		Found          bool    `json:"found"`
		CenterX        int     `json:"center_x"`
		CenterY        int     `json:"center_y"`
		Confidence     float64 `json:"confidence"`
		TemplateWidth  int     `json:"template_width"`
		TemplateHeight int     `json:"template_height"`
		Error          string  `json:"error,omitempty"`
		ErrorCode      string  `json:"error_code,omitempty"`
	} `json:"results"`
}

// Match sends the screenshot and templates to the daemon and returns
// per-template results in daemon order.
func (m *RemoteMatcher) Match(ctx context.Context, screenshot []byte, templates []HintImage, scaleFactor, threshold float64) ([]MatchResult, error) {
	payload := matchRequest{
		Screenshot:  base64.StdEncoding.EncodeToString(screenshot),
		ScaleFactor: scaleFactor,
		Threshold:   threshold,
	}
	for _, tmpl := range templates {
		payload.Templates = append(payload.Templates, matchTemplate{
			Index:    tmpl.Index,
			FileName: tmpl.FileName,
			Data:     base64.StdEncoding.EncodeToString(tmpl.Data),
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/match", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("match request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read match response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("match failed: %s", errResp.Error)
		}
		return nil, fmt.Errorf("match failed with status %d", resp.StatusCode)
	}

	var decoded matchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode match response: %w", err)
	}

	results := make([]MatchResult, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		results = append(results, MatchResult{
			Index:          r.Index,
			FileName:       r.FileName,
			Found:          r.Found,
			CenterX:        r.CenterX,
			CenterY:        r.CenterY,
			Confidence:     r.Confidence,
			TemplateWidth:  r.TemplateWidth,
			TemplateHeight: r.TemplateHeight,
			Error:          r.Error,
			ErrorCode:      ErrorCode(r.ErrorCode),
		})
	}
	return results, nil
}
