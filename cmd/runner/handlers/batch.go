package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/hairizuan-noorazman/desktop-automation/batch"
	"github.com/hairizuan-noorazman/desktop-automation/logger"
)

// BatchHandler exposes batch execution over HTTP. One batch runs at a
// time; the handler keeps the delivery of the most recent batch so its
// result stays fetchable after completion.
type BatchHandler struct {
	runner *batch.Runner
	stop   *batch.FlagStop
	logger logger.Logger

	mu       sync.Mutex
	delivery *batch.ResultDelivery
}

// NewBatchHandler creates a batch handler.
func NewBatchHandler(runner *batch.Runner, stop *batch.FlagStop, log logger.Logger) *BatchHandler {
	return &BatchHandler{
		runner: runner,
		stop:   stop,
		logger: log,
	}
}

// StartBatchRequest is the payload for starting a batch.
type StartBatchRequest struct {
	ScenarioIDs   []string `json:"scenario_ids"`
	StopOnFailure bool     `json:"stop_on_failure"`
}

// Start launches a batch run in the background.
func (h *BatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartBatchRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ScenarioIDs) == 0 {
		respondError(w, http.StatusBadRequest, "scenario_ids is required")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ScenarioIDs))
	for _, raw := range req.ScenarioIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid scenario ID: "+raw)
			return
		}
		ids = append(ids, id)
	}

	// Detached from the request context: the batch outlives this call.
	delivery, err := h.runner.StartAsync(context.Background(), ids, batch.Options{
		StopOnFailure: req.StopOnFailure,
	})
	if err != nil {
		if errors.Is(err, batch.ErrBatchInProgress) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.mu.Lock()
	h.delivery = delivery
	h.mu.Unlock()

	h.logger.Info(r.Context(), "batch started", map[string]interface{}{
		"scenario_count":  len(ids),
		"stop_on_failure": req.StopOnFailure,
	})
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"total_scenarios": len(ids),
	})
}

// Current returns the latest batch run state snapshot.
func (h *BatchHandler) Current(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.runner.Notifier().State())
}

// Stop requests a cooperative stop of the running batch. The current
// action finishes; nothing further starts.
func (h *BatchHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.runner.Running() {
		respondError(w, http.StatusConflict, "no batch is running")
		return
	}

	h.runner.RequestStop()
	h.logger.Info(r.Context(), "batch stop requested", nil)
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "stop requested"})
}

// Result returns the result of the most recent batch, waiting for
// completion if it is still running.
func (h *BatchHandler) Result(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	delivery := h.delivery
	h.mu.Unlock()

	if delivery == nil {
		respondError(w, http.StatusNotFound, "no batch has been started")
		return
	}

	result, err := delivery.Await(r.Context())
	if err != nil {
		respondError(w, http.StatusRequestTimeout, "batch still running")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
