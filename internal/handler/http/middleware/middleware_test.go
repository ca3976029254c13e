// File: backend/services/impersonation-service/internal/handler/http/middleware/middleware_test.go
package middleware_test

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
	domainService "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/service"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/handler/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockTokenService struct{ mock.Mock }

func (m *MockTokenService) MintImpersonationToken(target *entity.Client, adminID, sessionID string) (string, error) {
	args := m.Called(target, adminID, sessionID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(tokenString string) (*domainService.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) != nil {
		return args.Get(0).(*domainService.Claims), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSessionRepository struct{ mock.Mock }

func (m *MockSessionRepository) Create(ctx context.Context, session *entity.ImpersonationSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) FindByID(ctx context.Context, id string) (*entity.ImpersonationSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*entity.ImpersonationSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) FindActiveByID(ctx context.Context, id string) (*entity.ImpersonationSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*entity.ImpersonationSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) FindActiveByAdminID(ctx context.Context, adminID string) (*entity.ImpersonationSession, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) != nil {
		return args.Get(0).(*entity.ImpersonationSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) Terminate(ctx context.Context, id string, status entity.SessionStatus, endedAt time.Time) error {
	return m.Called(ctx, id, status, endedAt).Error(0)
}

func (m *MockSessionRepository) List(ctx context.Context, params repository.ListSessionParams) ([]*entity.ImpersonationSession, int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) != nil {
		return args.Get(0).([]*entity.ImpersonationSession), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *MockSessionRepository) ExpireDue(ctx context.Context, now time.Time) ([]*entity.ImpersonationSession, error) {
	args := m.Called(ctx, now)
	if args.Get(0) != nil {
		return args.Get(0).([]*entity.ImpersonationSession), args.Error(1)
	}
	return nil, args.Error(1)
}

// withClaims injects claims the way AuthMiddleware would.
func withClaims(claims *domainService.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.GinContextClaimsKey, claims)
		c.Set(middleware.GinContextPrincipalIDKey, claims.ClientID)
		c.Set(middleware.GinContextIsImpersonatingKey, claims.IsImpersonating)
		c.Next()
	}
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "passed"})
}
