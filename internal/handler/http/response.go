// File: backend/services/impersonation-service/internal/handler/http/response.go
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/errors"
)

// ResponseError is the failure envelope returned by every endpoint.
type ResponseError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondWithError sends an error envelope and logs it.
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string, logger *zap.Logger) {
	logger.Error("API error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", errorCode),
		zap.String("error_message", message),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)

	c.JSON(statusCode, ResponseError{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// RespondWithDomainError maps a domain error to its HTTP representation.
func RespondWithDomainError(c *gin.Context, err error, logger *zap.Logger) {
	status, code := statusForDomainError(err)
	RespondWithError(c, status, code, err.Error(), logger)
}

// RespondWithSuccess sends the success envelope with the given payload merged in.
func RespondWithSuccess(c *gin.Context, statusCode int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(statusCode, body)
}

func statusForDomainError(err error) (int, string) {
	switch {
	case domainErrors.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case domainErrors.IsConflict(err):
		return http.StatusConflict, "active_session_exists"
	case domainErrors.IsForbidden(err):
		return http.StatusForbidden, forbiddenCode(err)
	case domainErrors.IsUnauthorized(err):
		return http.StatusUnauthorized, "unauthorized"
	case domainErrors.IsBadRequest(err):
		return http.StatusBadRequest, "validation_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func forbiddenCode(err error) string {
	switch {
	case errors.Is(err, domainErrors.ErrPeerAdminTarget):
		return "peer_admin_target"
	case errors.Is(err, domainErrors.ErrCascadeImpersonation):
		return "cascade_impersonation_blocked"
	case errors.Is(err, domainErrors.ErrStepUpRequired):
		return "step_up_required"
	default:
		return "forbidden"
	}
}
