package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type HealthHandler struct {
	ping   func(ctx context.Context) error
	logger *zap.Logger
}

func NewHealthHandler(ping func(ctx context.Context) error, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{ping: ping, logger: logger}
}

// Check reports 503 when the storage backend does not answer within 2s.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
