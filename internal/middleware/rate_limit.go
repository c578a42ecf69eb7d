package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deepfake-detector/internal/models"
)

// RateLimitMiddleware handles rate limiting
type RateLimitMiddleware struct {
	logger      *zap.Logger
	visitors    map[string]*Visitor
	mutex       sync.Mutex
	limit       int
	window      time.Duration
	blockWindow time.Duration
	now         func() time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

// Visitor represents a client with its request history
type Visitor struct {
	Requests     []time.Time
	BlockedUntil time.Time
}

// NewRateLimitMiddleware creates a new rate limit middleware. Close stops its cleanup loop.
func NewRateLimitMiddleware(logger *zap.Logger, limit int, window, blockWindow time.Duration) *RateLimitMiddleware {
	r := &RateLimitMiddleware{
		logger:      logger,
		visitors:    make(map[string]*Visitor),
		limit:       limit,
		window:      window,
		blockWindow: blockWindow,
		now:         time.Now,
		stop:        make(chan struct{}),
	}

	go r.cleanupOldEntries(time.Hour)

	return r
}

// RateLimit limits requests based on IP address
func (r *RateLimitMiddleware) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: "Rate limit exceeded, please try again later",
			})
			return
		}
		c.Next()
	}
}

func (r *RateLimitMiddleware) allow(ip string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	visitor, exists := r.visitors[ip]

	if exists && now.Before(visitor.BlockedUntil) {
		return false
	}

	if !exists {
		visitor = &Visitor{}
		r.visitors[ip] = visitor
	}

	// drop requests outside the window
	cutoff := now.Add(-r.window)
	kept := visitor.Requests[:0]
	for _, reqTime := range visitor.Requests {
		if reqTime.After(cutoff) {
			kept = append(kept, reqTime)
		}
	}
	visitor.Requests = kept

	if len(visitor.Requests) >= r.limit {
		visitor.BlockedUntil = now.Add(r.blockWindow)
		r.logger.Warn("Rate limit exceeded", zap.String("ip", ip))
		return false
	}

	visitor.Requests = append(visitor.Requests, now)
	return true
}

// Close stops the cleanup goroutine
func (r *RateLimitMiddleware) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// cleanupOldEntries periodically removes idle visitors
func (r *RateLimitMiddleware) cleanupOldEntries(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.purge()
		}
	}
}

func (r *RateLimitMiddleware) purge() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	for ip, visitor := range r.visitors {
		active := len(visitor.Requests) > 0 && visitor.Requests[len(visitor.Requests)-1].After(cutoff)
		if !active && !now.Before(visitor.BlockedUntil) {
			delete(r.visitors, ip)
		}
	}
}
