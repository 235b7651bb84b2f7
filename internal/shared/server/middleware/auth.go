package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"contract-backend/internal/shared/auth"
	"contract-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
)

// Auth validates bearer tokens or guest headers and stores identity in context.
// Token issuance happens outside this service; only verification lives here.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Preflight requests carry no identity; answer and stop the chain.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.Verify(jwtSecret, token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(userIDKey, claims.Subject)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(userNameKey, claims.Name)
			}
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(userIDKey, "guest:"+guestID)
		c.Next()
	}
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
