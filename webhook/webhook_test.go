package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/desktop-automation/logger"
)

func samplePayload() FailurePayload {
	p := FailurePayload{
		Event:     "scenario_failed",
		Timestamp: time.Now(),
	}
	p.Scenario.ID = uuid.New()
	p.Scenario.Title = "Login flow"
	p.Error.Message = "element_not_found: save button missing"
	p.Error.FailedAtAction = "click save"
	p.Error.LastSuccessfulAction = "click login"
	p.Error.CompletedActions = 2
	return p
}

func TestClient_Enabled(t *testing.T) {
	assert.False(t, NewClient("", logger.NewNopLogger()).Enabled())
	assert.True(t, NewClient("http://localhost:9", logger.NewNopLogger()).Enabled())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}

func TestClient_NotifyFailure(t *testing.T) {
	var (
		gotContentType string
		gotBody        map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
	}))
	defer srv.Close()

	payload := samplePayload()
	client := NewClient(srv.URL, logger.NewNopLogger())
	require.NoError(t, client.NotifyFailure(context.Background(), payload))

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "scenario_failed", gotBody["event"])

	sc := gotBody["scenario"].(map[string]interface{})
	assert.Equal(t, payload.Scenario.ID.String(), sc["id"])
	assert.Equal(t, "Login flow", sc["title"])

	errBody := gotBody["error"].(map[string]interface{})
	assert.Equal(t, "element_not_found: save button missing", errBody["message"])
	assert.Equal(t, "click save", errBody["failedAtAction"])
	assert.Equal(t, "click login", errBody["lastSuccessfulAction"])
	assert.Equal(t, float64(2), errBody["completedActions"])
}

func TestClient_NotifyFailureRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	log := logger.NewTestLogger()
	client := NewClient(srv.URL, log)

	err := client.NotifyFailure(context.Background(), samplePayload())
	assert.EqualError(t, err, "webhook returned status 502")
	assert.True(t, log.HasMessage("warn", "webhook delivery rejected"))
}

func TestClient_NotifyFailureConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	log := logger.NewTestLogger()
	client := NewClient(srv.URL, log)

	err := client.NotifyFailure(context.Background(), samplePayload())
	assert.Error(t, err)
	assert.True(t, log.HasMessage("warn", "webhook delivery failed"))
}

func TestClient_DisabledIsNoOp(t *testing.T) {
	client := NewClient("", logger.NewNopLogger())
	assert.NoError(t, client.NotifyFailure(context.Background(), samplePayload()))
}
