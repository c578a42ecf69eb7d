package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deepfake-detector/internal/services"
)

// StatsHandler handles statistics requests
type StatsHandler struct {
	service *services.DetectorService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(service *services.DetectorService) *StatsHandler {
	return &StatsHandler{
		service: service,
	}
}

// GetStats returns service statistics
func (h *StatsHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetStats())
}
