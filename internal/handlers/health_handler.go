package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deepfake-detector/internal/models"
	"deepfake-detector/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	service *services.DetectorService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service *services.DetectorService) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready reports whether analyses can be forwarded. The remote endpoint itself is not
// probed; it is only called on behalf of a user.
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.service.IsReady() {
		c.JSON(http.StatusServiceUnavailable, models.ReadyResponse{Status: "unavailable"})
		return
	}
	c.JSON(http.StatusOK, models.ReadyResponse{
		Status:     "ok",
		PredictURL: h.service.PredictURL(),
	})
}
