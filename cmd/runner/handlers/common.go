package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/hairizuan-noorazman/desktop-automation/internal/uuidutil"
	"github.com/hairizuan-noorazman/desktop-automation/logger"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a success response with a message.
type SuccessResponse struct {
	Message string `json:"message"`
}

// PaginatedResponse represents a standardized paginated list response.
type PaginatedResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// parseJSON parses JSON from the request body into the given destination.
func parseJSON(r *http.Request, dest interface{}, log logger.Logger) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		log.Error(r.Context(), "failed to parse JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// parseUUIDOrRespond parses a UUID path parameter, writing a 400 and
// returning false when invalid.
func parseUUIDOrRespond(w http.ResponseWriter, r *http.Request, paramName, entityName string) (uuid.UUID, bool) {
	id, err := uuidutil.Parse(mux.Vars(r)[paramName])
	if err != nil {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid %s ID: must be a valid UUID", entityName))
		return uuid.Nil, false
	}
	return id, true
}

// HealthHandler reports service liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
