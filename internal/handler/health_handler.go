package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightpath/studyplan-core/internal/models"
	"github.com/brightpath/studyplan-core/internal/service"
)

// HealthHandler exposes the unauthenticated health endpoint (spec §6.3).
type HealthHandler struct {
	health *service.HealthService
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(health *service.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// Check handles GET /healthz.
func (h *HealthHandler) Check(c *gin.Context) {
	report := h.health.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status == models.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
