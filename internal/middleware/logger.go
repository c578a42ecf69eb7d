package middleware

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerMiddleware handles request logging
type LoggerMiddleware struct {
	logger *zap.Logger
}

// NewLoggerMiddleware creates a new logger middleware
func NewLoggerMiddleware(logger *zap.Logger) *LoggerMiddleware {
	return &LoggerMiddleware{
		logger: logger,
	}
}

// LogRequests logs every request through zap
func (m *LoggerMiddleware) LogRequests() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    io.Discard,
		SkipPaths: []string{"/health", "/metrics"},
		Formatter: func(param gin.LogFormatterParams) string {
			m.logger.Info("Request",
				zap.String("client_ip", param.ClientIP),
				zap.Time("time", param.TimeStamp),
				zap.String("method", param.Method),
				zap.String("path", param.Path),
				zap.Int("status_code", param.StatusCode),
				zap.Int64("latency", param.Latency.Microseconds()),
				zap.String("user_agent", param.Request.UserAgent()),
			)
			return ""
		},
	})
}
