package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StatusEnvelope describes how the running instance is wired.
type StatusEnvelope struct {
	Env      string `json:"env"`
	Store    string `json:"store"`
	Checkout bool   `json:"checkout"`
}

// HealthHandler answers /health-check/{action}: "ping" for liveness and
// "status" for the active wiring.
type HealthHandler struct {
	status StatusEnvelope
}

func NewHealthHandler(status StatusEnvelope) *HealthHandler {
	return &HealthHandler{status: status}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "status":
		writeJSON(w, http.StatusOK, h.status)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
	}
}
