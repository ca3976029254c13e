// File: backend/services/impersonation-service/internal/infrastructure/security/jwt_service.go
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	domainErrors "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/errors"
	domainService "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/service"
)

// JWTConfig holds signing configuration for the token service.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	// TokenTTL is the impersonation token lifetime; it equals the session TTL
	// so the token itself enforces the session bound.
	TokenTTL time.Duration
}

type jwtTokenService struct {
	config JWTConfig
	secret []byte
}

// NewJWTTokenService creates a TokenService signing with HS256 using the
// platform-wide shared secret.
func NewJWTTokenService(cfg JWTConfig) (domainService.TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret must be configured")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("jwt token ttl must be positive")
	}
	return &jwtTokenService{config: cfg, secret: []byte(cfg.Secret)}, nil
}

func (s *jwtTokenService) MintImpersonationToken(target *entity.Client, adminID, sessionID string) (string, error) {
	now := time.Now()

	claims := &domainService.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   target.ID,
			Issuer:    s.config.Issuer,
			Audience:  jwt.ClaimStrings{s.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
		},
		ClientID:               target.ID,
		Email:                  target.Email,
		Role:                   target.EffectiveRole(),
		IsImpersonating:        true,
		AdminID:                adminID,
		ImpersonationSessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign impersonation token: %w", err)
	}
	return signed, nil
}

func (s *jwtTokenService) Validate(tokenString string) (*domainService.Claims, error) {
	claims := &domainService.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, domainErrors.ErrInvalidToken
	}
	return claims, nil
}

var _ domainService.TokenService = (*jwtTokenService)(nil)
