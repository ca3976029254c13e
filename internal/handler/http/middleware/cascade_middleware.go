// File: backend/services/impersonation-service/internal/handler/http/middleware/cascade_middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainService "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/service"
)

// PreventCascadeImpersonation blocks an operator who is already impersonating
// from opening a second impersonation layer. It inspects the bearer token on
// its own: a missing or malformed token passes through for the general auth
// gate to handle, only a well-formed token with isImpersonating=true is
// rejected here.
func PreventCascadeImpersonation(tokens domainService.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			c.Next()
			return
		}

		if claims.IsImpersonating {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "cascade_impersonation_blocked",
				"message": "You cannot start impersonation while already impersonating another account. End the current session first.",
			})
			return
		}

		c.Next()
	}
}
