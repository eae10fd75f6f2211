package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teamhub/internal/authz"
)

func forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": msg})
}

func RequireRoles(allowed ...string) gin.HandlerFunc {
	allowedSet := map[string]struct{}{}
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			unauthorized(c, "No token, authorization denied")
			return
		}
		r, _ := role.(string)
		if _, ok := allowedSet[r]; !ok {
			forbidden(c, "Access denied")
			return
		}
		c.Next()
	}
}

// ReadOnlyGuard blocks unsafe methods for site viewers.
func ReadOnlyGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CtxRole)
		if r, _ := role.(string); authz.IsReadOnly(r) {
			switch c.Request.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				forbidden(c, "Read-only account")
				return
			}
		}
		c.Next()
	}
}
