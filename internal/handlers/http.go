package handlers

import (
	"net/http"

	"github.com/fleetwatch/fleetwatch/internal/api"
	"github.com/fleetwatch/fleetwatch/internal/middleware"
	"github.com/fleetwatch/fleetwatch/internal/push"
)

// HTTPHandler handles infrastructure endpoints: health and the push
// websocket
type HTTPHandler struct {
	hub *push.Hub
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(hub *push.Hub) *HTTPHandler {
	return &HTTPHandler{
		hub: hub,
	}
}

// SetupRoutes configures all HTTP routes
func (h *HTTPHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	if h.hub != nil {
		mux.HandleFunc("/ws", h.handleWS)
	}
}

// handleHealth returns a simple health check response
func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	api.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": "1.0.0",
	})
}

// handleWS upgrades the connection and registers it for push notifications.
// The JWT middleware runs before this, so the username is always present.
func (h *HTTPHandler) handleWS(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUserFromContext(r.Context())
	if username == "" {
		api.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	h.hub.ServeWS(w, r, username)
}
