package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// CORSMiddleware handles Cross-Origin Resource Sharing
type CORSMiddleware struct {
	allowedOrigins []string
}

// NewCORSMiddleware creates a new CORS middleware
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	return &CORSMiddleware{allowedOrigins: allowedOrigins}
}

// SetupCORS sets up CORS configuration
func (m *CORSMiddleware) SetupCORS() gin.HandlerFunc {
	wildcard := len(m.allowedOrigins) == 1 && m.allowedOrigins[0] == "*"

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: m.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length"},
		// the session cookie only travels to explicitly listed origins
		AllowCredentials: !wildcard,
		MaxAge:           86400, // 24 hours
	})

	return func(c *gin.Context) {
		corsMiddleware.HandlerFunc(c.Writer, c.Request)

		// preflight requests are fully answered by cors
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
