package middleware

import (
	"context"
	"net/http"
	"strings"

	"campusride/internal/auth"
	"campusride/internal/domain/models"

	"github.com/gin-gonic/gin"
)

const userKey = "current_user"

// Authenticator resolves a session token to the current user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// SessionToken reads the session cookie, falling back to a Bearer header.
func SessionToken(c *gin.Context) string {
	if v, err := c.Cookie(auth.CookieName); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// AuthRequired loads the session user on every request so role flags are
// never stale.
func AuthRequired(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		user, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireDriver only lets users flagged as drivers through. It must run
// after AuthRequired.
func RequireDriver() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !user.IsDriver {
			abort(c, http.StatusForbidden, "forbidden", "only drivers can do this")
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      message,
		"code":       code,
		"message":    message,
		"request_id": GetRequestID(c),
	})
}
