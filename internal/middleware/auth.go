package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vocalizeapp/vocalize/internal/auth"
	"github.com/vocalizeapp/vocalize/internal/metrics"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

const (
	// AuthContextKey is the gin context key holding the caller's user ID
	AuthContextKey = "user_id"
)

// SessionVerifier validates a presented session token
type SessionVerifier interface {
	Verify(token string) (string, error)
}

// APIKeyValidator resolves the stored digest of a presented API key
type APIKeyValidator interface {
	GetUserByAPIKeyHash(ctx context.Context, hash string) (*models.User, error)
}

// Auth gates every protected route. It accepts either the session cookie
// or an API key as Authorization: Bearer. All failures collapse to one 401
// body so a caller cannot distinguish the cause.
func Auth(sessions SessionVerifier, keys APIKeyValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := authenticate(c, sessions, keys); ok {
			c.Set(AuthContextKey, userID)
			c.Next()
			return
		}

		metrics.AuthRejectionsTotal.Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		c.Abort()
	}
}

func authenticate(c *gin.Context, sessions SessionVerifier, keys APIKeyValidator) (string, bool) {
	// Session cookie first
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil && cookie != "" {
		if userID, err := sessions.Verify(cookie); err == nil {
			return userID, true
		}
		return "", false
	}

	// Bearer API key
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		key := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if key == "" {
			return "", false
		}

		user, err := keys.GetUserByAPIKeyHash(c.Request.Context(), auth.HashAPIKey(key))
		if err != nil || user == nil {
			return "", false
		}
		return user.ID, true
	}

	return "", false
}

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(AuthContextKey)
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	return userIDStr, ok
}
