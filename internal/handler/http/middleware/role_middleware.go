// File: backend/services/impersonation-service/internal/handler/http/middleware/role_middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
)

// RequireSuperAdmin rejects callers whose effective role claim is not
// super_admin. Must run after AuthMiddleware. An impersonation-scoped token
// carries the target's role, so an impersonating operator does not pass this
// gate by virtue of their real identity.
func RequireSuperAdmin(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			logger.Warn("RequireSuperAdmin: claims not found in context; AuthMiddleware missing?")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Access denied",
			})
			return
		}

		if claims.Role != entity.RoleSuperAdmin {
			logger.Warn("RequireSuperAdmin: insufficient role",
				zap.String("principal_id", claims.ClientID),
				zap.String("role", claims.Role),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Access denied: super admin required",
			})
			return
		}

		c.Next()
	}
}
