package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/internal/services"
)

// HealthChecker reports liveness and readiness.
type HealthChecker interface {
	Health() *services.HealthStatus
	Ready(ctx context.Context) (*services.HealthStatus, error)
}

type HealthHandler struct {
	logger        *logrus.Logger
	healthService HealthChecker
}

func NewHealthHandler(logger *logrus.Logger, healthService HealthChecker) *HealthHandler {
	return &HealthHandler{
		logger:        logger,
		healthService: healthService,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, h.healthService.Health())
}

// Ready answers 503 while the cache or the database is unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	status, err := h.healthService.Ready(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Service not ready")
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}

	c.JSON(http.StatusOK, status)
}
