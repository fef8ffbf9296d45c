package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// IdentityMiddleware reads the caller identity set by the gateway. Requests
// without an X-User-Id header are rejected.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user id"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
