package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"techtrack-backend/internal/auth"
	"techtrack-backend/internal/model"
)

// Context keys set by Auth and read by handlers.
const (
	ctxUserID = "user_id"
	ctxName   = "user_name"
	ctxRole   = "user_role"
)

// Auth verifies the bearer token and stores the caller's identity on the
// request context. Websocket clients cannot set headers from the browser, so
// a token query parameter is accepted as a fallback there.
func Auth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tokenStr = strings.TrimPrefix(h, "Bearer ")
		} else if c.IsWebsocket() {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}

		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxName, claims.Name)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireTechnician gates lifecycle and triage operations to technicians.
func RequireTechnician() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorRole(c) != model.RoleTechnician {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "technician role required"})
			return
		}
		c.Next()
	}
}

// ActorName returns the authenticated caller's name, the identity recorded
// by every lifecycle operation. Empty when the route is unauthenticated.
func ActorName(c *gin.Context) string {
	return c.GetString(ctxName)
}

// ActorRole returns the authenticated caller's role.
func ActorRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// ActorID returns the authenticated caller's user id.
func ActorID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
