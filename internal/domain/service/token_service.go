// File: backend/services/impersonation-service/internal/domain/service/token_service.go
package service

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
)

// Claims are the JWT claims carried by tokens this subsystem understands. For
// an impersonation-scoped token, ClientID/Email/Role describe the target
// account while AdminID identifies the real operator behind it.
type Claims struct {
	jwt.RegisteredClaims
	ClientID               string `json:"clientId"`
	Email                  string `json:"email"`
	Role                   string `json:"role"`
	IsImpersonating        bool   `json:"isImpersonating,omitempty"`
	AdminID                string `json:"adminId,omitempty"`
	ImpersonationSessionID string `json:"impersonationSessionId,omitempty"`
}

// TokenService mints and validates the bearer tokens used during
// impersonation. The general login flow issues the operator's own tokens
// elsewhere; this subsystem only needs the shared signing primitive.
type TokenService interface {
	// MintImpersonationToken issues a token granting the target client's
	// identity, flagged with the real admin and session. Its lifetime equals
	// the session TTL, so the token alone enforces the session bound.
	MintImpersonationToken(target *entity.Client, adminID, sessionID string) (string, error)

	// Validate parses and verifies a bearer token, returning its claims.
	// Returns domainErrors.ErrExpiredToken or ErrInvalidToken on failure.
	Validate(tokenString string) (*Claims, error)
}
