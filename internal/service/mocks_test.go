// File: backend/services/impersonation-service/internal/service/mocks_test.go
package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
	domainService "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/service"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/events/kafka"
)

type MockClientRepository struct{ mock.Mock }

func (m *MockClientRepository) FindByID(ctx context.Context, id string) (*entity.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*entity.Client), args.Error(1)
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

type MockAuditLogRepository struct{ mock.Mock }

func (m *MockAuditLogRepository) Create(ctx context.Context, entry *entity.AuditLogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditLogRepository) ListBySessionID(ctx context.Context, params repository.ListAuditLogParams) ([]*entity.AuditLogEntry, int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) != nil {
		return args.Get(0).([]*entity.AuditLogEntry), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

type MockVault struct{ mock.Mock }

func (m *MockVault) Seal(plainText string) (string, error) {
	args := m.Called(plainText)
	return args.String(0), args.Error(1)
}

func (m *MockVault) Unseal(cipherText string) (string, error) {
	args := m.Called(cipherText)
	return args.String(0), args.Error(1)
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

// RecordingSink captures audit entries synchronously for assertions.
type RecordingSink struct {
	mu      sync.Mutex
	Entries []*entity.AuditLogEntry
}

func (s *RecordingSink) Record(entry *entity.AuditLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, entry)
}

func (s *RecordingSink) ByAction(action entity.AuditActionType) []*entity.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.AuditLogEntry
	for _, entry := range s.Entries {
		if entry.ActionType == action {
			out = append(out, entry)
		}
	}
	return out
}

// RecordingPublisher captures lifecycle events.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []kafka.EventType
}

func (p *RecordingPublisher) PublishSessionEvent(_ context.Context, eventType kafka.EventType, _ string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, eventType)
	return nil
}
