package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/chorely/chorely/pkg/http"
)

// HealthChecker is implemented by both store backends
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves the welcome and liveness routes
type HealthHandler struct {
	store   HealthChecker
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store HealthChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{store: store, timeout: 2 * time.Second, logger: logger}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func (h *HealthHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteMessage(w, http.StatusOK, "Welcome to chorely!")
}

// Health pings the store and reports 503 when it is unreachable
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.HealthCheck(ctx); err != nil {
		h.logger.Warn("health check failed", slog.Any("error", err))
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Store: "down"})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: "up"})
}
