package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/pkg/response"
)

// RequireCapability returns a middleware that allows only roles granting the
// capability. All role gating goes through the models capability table so
// authorization is centralized and exhaustively testable.
func RequireCapability(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		if !models.RoleCan(models.Role(role), capability) {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
