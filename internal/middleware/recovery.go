package middleware

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deepfake-detector/internal/models"
)

// RecoveryMiddleware handles panic recovery
type RecoveryMiddleware struct {
	logger *zap.Logger
}

// NewRecoveryMiddleware creates a new recovery middleware
func NewRecoveryMiddleware(logger *zap.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{
		logger: logger,
	}
}

// RecoveryWithZap recovers from panics and logs the error
func (m *RecoveryMiddleware) RecoveryWithZap() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, err interface{}) {
		m.logger.Error("Panic recovered",
			zap.Any("error", err),
			zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Internal server error",
		})
	})
}
