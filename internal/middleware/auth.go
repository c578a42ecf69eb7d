package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/models"
)

// APIKeyHeader carries the operator key for protected endpoints
const APIKeyHeader = "X-API-KEY"

// AuthMiddleware handles API key authentication
type AuthMiddleware struct {
	config *config.Config
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(config *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		config: config,
	}
}

// AuthRequired validates the API key in the request header. With no key configured
// the protected endpoints are open.
func (m *AuthMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.APIKey == "" {
			c.Next()
			return
		}

		apiKey := c.GetHeader(APIKeyHeader)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "API key is required"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.config.APIKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid API key"})
			return
		}

		c.Next()
	}
}
