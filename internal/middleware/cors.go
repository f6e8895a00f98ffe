package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS restricts cross-origin requests to an injected allow-list. Requests
// from unknown origins are answered with the first configured origin, so
// browsers on other sites cannot read responses with credentials. OPTIONS
// preflights short-circuit with just the CORS headers.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	var fallback string
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if fallback == "" {
			fallback = trimmed
		}
		originSet[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		allowOrigin := fallback
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := originSet[origin]; ok {
				allowOrigin = origin
			}
		}

		if allowOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowOrigin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
