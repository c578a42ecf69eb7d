package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	// SessionCookieName names the cookie that ties a browser to its upload flow
	SessionCookieName = "deepfake_session"

	sessionIDKey     = "id"
	sessionIDContext = "session_id"
)

// SessionMiddleware assigns every browser a stable session id
type SessionMiddleware struct {
	store  *sessions.CookieStore
	logger *zap.Logger
}

// NewSessionMiddleware creates a cookie-backed session middleware
func NewSessionMiddleware(secret string, ttl time.Duration, logger *zap.Logger) *SessionMiddleware {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionMiddleware{
		store:  store,
		logger: logger,
	}
}

// Session loads or creates the session id and stores it in the gin context
func (m *SessionMiddleware) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		// a cookie that fails to decode simply starts a new session
		session, err := m.store.Get(c.Request, SessionCookieName)
		if err != nil {
			m.logger.Debug("Discarding unreadable session cookie", zap.Error(err))
		}

		id, _ := session.Values[sessionIDKey].(string)
		if id == "" {
			id = uuid.NewString()
			session.Values[sessionIDKey] = id
		}

		// saving on every request slides the cookie expiry along with the flow's
		if err := session.Save(c.Request, c.Writer); err != nil {
			m.logger.Error("Failed to save session", zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(sessionIDContext, id)
		c.Next()
	}
}

// SessionID returns the id set by Session
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDContext)
}
