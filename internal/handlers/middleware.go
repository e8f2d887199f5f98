package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/zaki-44/bio-hackathon/internal/service"
)

const (
	identityKey   = "identity"
	SessionCookie = "session"
)

// RequestLogger logs one line per request and leaves a request-scoped logger
// in the context for handlers.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		entry := log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
		c.Set(loggerKey, entry)
		c.Next()

		fields := logrus.Fields{
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if id := identityFrom(c); id != nil {
			fields["user_id"] = id.UserID
		}
		entry.WithFields(fields).Info("request")
	}
}

// tokenFrom prefers the Authorization header over the session cookie.
func tokenFrom(c *gin.Context) string {
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	if v, err := c.Cookie(SessionCookie); err == nil {
		return v
	}
	return ""
}

// RequireAuth rejects requests without a valid session.
func RequireAuth(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := tokenFrom(c)
		if tok == "" {
			writeError(c, service.ErrUnauthenticated)
			return
		}
		id, err := auth.ParseToken(tok)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(identityKey, &id)
		c.Next()
	}
}

// OptionalAuth resolves the identity when a valid token is present and lets
// the request through either way.
func OptionalAuth(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := tokenFrom(c); tok != "" {
			if id, err := auth.ParseToken(tok); err == nil {
				c.Set(identityKey, &id)
			}
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) *service.Identity {
	if v, exists := c.Get(identityKey); exists {
		if id, ok := v.(*service.Identity); ok {
			return id
		}
	}
	return nil
}

// LimitBody caps the request body; reading past it fails with
// *http.MaxBytesError, which writeError reports as 413.
func LimitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
