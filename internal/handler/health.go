package handler

import (
	"log/slog"
	"net/http"

	"github.com/devpulse/devpulse/internal/service"
)

type HealthHandler struct {
	health *service.HealthService
	logger *slog.Logger
}

func NewHealthHandler(health *service.HealthService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{health: health, logger: logger}
}

type healthResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    *service.HealthReport `json:"data,omitempty"`
}

// HandleCheck: GET /api/health
func (h *HealthHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	report, err := h.health.Check(r.Context())
	if err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, healthResponse{
			Success: false,
			Message: "Database connection failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Success: true,
		Message: "Database connection successful",
		Data:    report,
	})
}
