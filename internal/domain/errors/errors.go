// File: backend/services/impersonation-service/internal/domain/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// General errors.
	ErrInternal     = errors.New("internal server error")
	ErrValidation   = errors.New("invalid request")
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("access denied")
	ErrUnauthorized = errors.New("not authenticated")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")

	// Impersonation errors.
	ErrClientNotFound       = errors.New("client not found")
	ErrSessionNotFound      = errors.New("impersonation session not found")
	ErrSessionNotActive     = errors.New("impersonation session is no longer active")
	ErrActiveSessionExists  = errors.New("an active impersonation session already exists")
	ErrPeerAdminTarget      = errors.New("cannot impersonate another super admin")
	ErrCascadeImpersonation = errors.New("cascade impersonation blocked")
	ErrNoActiveSession      = errors.New("no active impersonation session")
	ErrStepUpRequired       = errors.New("step-up verification required")

	// Vault errors.
	ErrDecryptionFailed = errors.New("failed to decrypt credential material")
)

// AppError carries an error with a user-facing message and API code.
type AppError struct {
	Err     error
	Message string
	Code    string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new application error.
func NewAppError(err error, message, code string) *AppError {
	return &AppError{Err: err, Message: message, Code: code}
}

// IsNotFound reports whether err is a "not found" class error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionNotActive)
}

// IsForbidden reports whether err is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrPeerAdminTarget) ||
		errors.Is(err, ErrCascadeImpersonation) ||
		errors.Is(err, ErrStepUpRequired)
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken)
}

// IsConflict reports whether err is a conflict with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrActiveSessionExists)
}

// IsBadRequest reports whether err is a request validation failure.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNoActiveSession)
}
