// File: backend/services/impersonation-service/internal/handler/http/middleware/stepup_middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/interfaces"
)

// RequireStepUp gates sensitive actions on a recent step-up verification.
// The verification itself happens in the general auth flow; this middleware
// only consults the resulting mark. Must run after AuthMiddleware.
func RequireStepUp(verifier interfaces.StepUpVerifier, enabled bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		claims, ok := ClaimsFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Not authenticated",
			})
			return
		}

		verified, err := verifier.IsVerified(c.Request.Context(), claims.ClientID)
		if err != nil {
			logger.Error("Step-up verification check failed", zap.Error(err),
				zap.String("principal_id", claims.ClientID))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Internal server error",
			})
			return
		}
		if !verified {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "step_up_required",
				"message": "A recent identity verification is required before starting impersonation.",
			})
			return
		}

		c.Next()
	}
}
