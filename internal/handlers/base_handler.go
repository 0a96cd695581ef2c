// Package handlers provides the HTTP surface of the studio service
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/qazaqstudy/lesson-studio/internal/backend"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondServiceError maps a service error to the right status code. A core
// API token rejection becomes a 401 so the client can force a logout.
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, backend.ErrUnauthorized) {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	h.RespondError(w, http.StatusBadGateway, err.Error())
}
