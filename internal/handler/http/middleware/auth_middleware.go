// File: backend/services/impersonation-service/internal/handler/http/middleware/auth_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/errors"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
	domainService "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/service"
)

const (
	AuthHeaderKey  = "Authorization"
	AuthTypeBearer = "bearer"

	GinContextClaimsKey          = "claims"
	GinContextPrincipalIDKey     = "principalID"
	GinContextIsImpersonatingKey = "isImpersonating"
	GinContextBearerTokenKey     = "bearerToken"
)

// AuthMiddleware validates the bearer token and stores its claims in the gin
// context. When the token is impersonation-scoped, the referenced session is
// checked against the live store: a terminated or overdue session rejects the
// request even though the token signature is still valid.
func AuthMiddleware(tokens domainService.TokenService, sessions repository.SessionRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authorization header format must be Bearer <token>",
			})
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			message := "Invalid or expired token"
			if errors.Is(err, domainErrors.ErrExpiredToken) {
				message = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   message,
			})
			return
		}

		if claims.IsImpersonating {
			if claims.ImpersonationSessionID == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"error":   "impersonation_session_expired",
				})
				return
			}
			if _, err := sessions.FindActiveByID(c.Request.Context(), claims.ImpersonationSessionID); err != nil {
				if domainErrors.IsNotFound(err) {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
						"success": false,
						"error":   "impersonation_session_expired",
					})
					return
				}
				logger.Error("Failed to validate impersonation session", zap.Error(err),
					zap.String("session_id", claims.ImpersonationSessionID))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "Internal server error",
				})
				return
			}
		}

		c.Set(GinContextClaimsKey, claims)
		c.Set(GinContextPrincipalIDKey, claims.ClientID)
		c.Set(GinContextIsImpersonatingKey, claims.IsImpersonating)
		c.Set(GinContextBearerTokenKey, tokenString)

		c.Next()
	}
}

// ClaimsFromContext retrieves the validated claims set by AuthMiddleware.
func ClaimsFromContext(c *gin.Context) (*domainService.Claims, bool) {
	value, exists := c.Get(GinContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*domainService.Claims)
	return claims, ok
}

// BearerTokenFromContext retrieves the raw bearer token set by AuthMiddleware.
func BearerTokenFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(GinContextBearerTokenKey)
	if !exists {
		return "", false
	}
	token, ok := value.(string)
	return token, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader(AuthHeaderKey)
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthTypeBearer) {
		return "", false
	}
	return parts[1], true
}
