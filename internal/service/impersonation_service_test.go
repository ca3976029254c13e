// File: backend/services/impersonation-service/internal/service/impersonation_service_test.go
package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	domainErrors "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/errors"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
	domainService "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/service"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/events/kafka"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/service"
)

const (
	adminID  = "a0000000-0000-0000-0000-000000000001"
	clientID = "c0000000-0000-0000-0000-000000000002"
)

type fixture struct {
	clients   *MockClientRepository
	sessions  *MockSessionRepository
	auditRepo *MockAuditLogRepository
	vault     *MockVault
	tokens    *MockTokenService
	sink      *RecordingSink
	events    *RecordingPublisher
	svc       *service.ImpersonationService
}

func newFixture() *fixture {
	f := &fixture{
		clients:   new(MockClientRepository),
		sessions:  new(MockSessionRepository),
		auditRepo: new(MockAuditLogRepository),
		vault:     new(MockVault),
		tokens:    new(MockTokenService),
		sink:      &RecordingSink{},
		events:    &RecordingPublisher{},
	}
	f.svc = service.NewImpersonationService(
		f.clients, f.sessions, f.auditRepo, f.vault, f.tokens,
		f.sink, f.events, 2*time.Hour, zap.NewNop(),
	)
	return f
}

func targetClient() *entity.Client {
	return &entity.Client{ID: clientID, Email: "client@example.com", Role: entity.RoleClient}
}

func activeSession() *entity.ImpersonationSession {
	now := time.Now()
	return &entity.ImpersonationSession{
		ID:                    "b0000000-0000-0000-0000-000000000003",
		AdminID:               adminID,
		ImpersonatedClientID:  clientID,
		OriginalAccessSealed:  "sealed-access",
		OriginalRefreshSealed: "sealed-refresh",
		Status:                entity.SessionStatusActive,
		StartedAt:             now.Add(-time.Minute),
		ExpiresAt:             now.Add(2 * time.Hour),
	}
}

func impersonatingClaims(sessionID string) *domainService.Claims {
	return &domainService.Claims{
		ClientID:               clientID,
		Email:                  "client@example.com",
		Role:                   entity.RoleClient,
		IsImpersonating:        true,
		AdminID:                adminID,
		ImpersonationSessionID: sessionID,
	}
}

func TestStart_HappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.clients.On("FindByID", ctx, clientID).Return(targetClient(), nil)
	f.clients.On("FindByID", ctx, adminID).Return(&entity.Client{
		ID: adminID, Email: "admin@example.com", Role: entity.RoleSuperAdmin,
	}, nil)
	f.sessions.On("FindActiveByAdminID", ctx, adminID).Return(nil, domainErrors.ErrSessionNotFound)
	f.vault.On("Seal", "admin-access-token").Return("sealed-access", nil)
	f.vault.On("Seal", "admin-refresh-token").Return("sealed-refresh", nil)
	f.sessions.On("Create", ctx, mock.AnythingOfType("*entity.ImpersonationSession")).Return(nil)
	f.tokens.On("MintImpersonationToken", mock.Anything, adminID, mock.AnythingOfType("string")).
		Return("signed-token", nil)

	reason := "support ticket 4812"
	result, err := f.svc.Start(ctx, adminID, clientID, &reason, service.Credentials{
		AccessToken:  "admin-access-token",
		RefreshToken: "admin-refresh-token",
	}, service.RequestMeta{IPAddress: "10.0.0.1"})

	require.NoError(t, err)
	assert.Equal(t, "signed-token", result.ImpersonationToken)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, clientID, result.ImpersonatedClient.ID)
	require.NotNil(t, result.OriginalAdmin)
	assert.Equal(t, adminID, result.OriginalAdmin.ID)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), result.ExpiresAt, time.Minute)

	created := f.sessions.Calls[1].Arguments.Get(1).(*entity.ImpersonationSession)
	assert.Equal(t, "sealed-access", created.OriginalAccessSealed)
	assert.Equal(t, entity.SessionStatusActive, created.Status)

	starts := f.sink.ByAction(entity.AuditActionSessionStart)
	require.Len(t, starts, 1)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(starts[0].RequestBodySanitized, &body))
	assert.Equal(t, reason, body["reason"])

	assert.Equal(t, []kafka.EventType{kafka.EventSessionStarted}, f.events.Events)
	f.sessions.AssertExpectations(t)
}

func TestStart_MissingRefreshTokenUsesPlaceholder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.clients.On("FindByID", ctx, clientID).Return(targetClient(), nil)
	f.clients.On("FindByID", ctx, adminID).Return(nil, domainErrors.ErrClientNotFound)
	f.sessions.On("FindActiveByAdminID", ctx, adminID).Return(nil, domainErrors.ErrSessionNotFound)
	f.vault.On("Seal", "access").Return("sealed-access", nil)
	f.vault.On("Seal", "no-refresh-token-provided").Return("sealed-placeholder", nil)
	f.sessions.On("Create", ctx, mock.Anything).Return(nil)
	f.tokens.On("MintImpersonationToken", mock.Anything, adminID, mock.Anything).Return("tok", nil)

	result, err := f.svc.Start(ctx, adminID, clientID, nil, service.Credentials{AccessToken: "access"}, service.RequestMeta{})
	require.NoError(t, err)
	assert.Nil(t, result.OriginalAdmin)
	f.vault.AssertCalled(t, "Seal", "no-refresh-token-provided")
}

func TestStart_TargetNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.clients.On("FindByID", ctx, clientID).Return(nil, domainErrors.ErrClientNotFound)

	_, err := f.svc.Start(ctx, adminID, clientID, nil, service.Credentials{}, service.RequestMeta{})
	assert.ErrorIs(t, err, domainErrors.ErrClientNotFound)
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.sink.Entries)
}

func TestStart_PeerAdminByRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.clients.On("FindByID", ctx, clientID).Return(&entity.Client{
		ID: clientID, Email: "peer@example.com", Role: entity.RoleSuperAdmin,
	}, nil)

	_, err := f.svc.Start(ctx, adminID, clientID, nil, service.Credentials{}, service.RequestMeta{})
	assert.ErrorIs(t, err, domainErrors.ErrPeerAdminTarget)
}

func TestStart_PeerAdminByTag(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Role says client, but the tag grants super admin: the effective role
	// decides.
	f.clients.On("FindByID", ctx, clientID).Return(&entity.Client{
		ID: clientID, Email: "tagged@example.com", Role: entity.RoleClient,
		Tags: []string{"beta", entity.RoleSuperAdmin},
	}, nil)

	_, err := f.svc.Start(ctx, adminID, clientID, nil, service.Credentials{}, service.RequestMeta{})
	assert.ErrorIs(t, err, domainErrors.ErrPeerAdminTarget)
}

func TestStart_ActiveSessionExists(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.clients.On("FindByID", ctx, clientID).Return(targetClient(), nil)
	f.sessions.On("FindActiveByAdminID", ctx, adminID).Return(activeSession(), nil)

	_, err := f.svc.Start(ctx, adminID, clientID, nil, service.Credentials{}, service.RequestMeta{})
	assert.ErrorIs(t, err, domainErrors.ErrActiveSessionExists)
	f.vault.AssertNotCalled(t, "Seal", mock.Anything)
}

func TestStart_RaceLosesAtInsert(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.clients.On("FindByID", ctx, clientID).Return(targetClient(), nil)
	f.sessions.On("FindActiveByAdminID", ctx, adminID).Return(nil, domainErrors.ErrSessionNotFound)
	f.vault.On("Seal", mock.Anything).Return("sealed", nil)
	// The store-level unique index rejects the second concurrent insert.
	f.sessions.On("Create", ctx, mock.Anything).Return(domainErrors.ErrActiveSessionExists)

	_, err := f.svc.Start(ctx, adminID, clientID, nil, service.Credentials{AccessToken: "a"}, service.RequestMeta{})
	assert.ErrorIs(t, err, domainErrors.ErrActiveSessionExists)
	f.tokens.AssertNotCalled(t, "MintImpersonationToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestStart_MintFailureClosesSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.clients.On("FindByID", ctx, clientID).Return(targetClient(), nil)
	f.sessions.On("FindActiveByAdminID", ctx, adminID).Return(nil, domainErrors.ErrSessionNotFound)
	f.vault.On("Seal", mock.Anything).Return("sealed", nil)
	f.sessions.On("Create", ctx, mock.Anything).Return(nil)
	f.tokens.On("MintImpersonationToken", mock.Anything, adminID, mock.Anything).
		Return("", assert.AnError)
	f.sessions.On("Terminate", ctx, mock.AnythingOfType("string"), entity.SessionStatusEnded, mock.Anything).Return(nil)

	_, err := f.svc.Start(ctx, adminID, clientID, nil, service.Credentials{AccessToken: "a"}, service.RequestMeta{})
	assert.Error(t, err)
	f.sessions.AssertCalled(t, "Terminate", ctx, mock.AnythingOfType("string"), entity.SessionStatusEnded, mock.Anything)
	assert.Empty(t, f.sink.Entries)
	assert.Empty(t, f.events.Events)
}

func TestEnd_HappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session := activeSession()

	f.sessions.On("FindByID", ctx, session.ID).Return(session, nil)
	f.vault.On("Unseal", "sealed-access").Return("restored-access", nil)
	f.vault.On("Unseal", "sealed-refresh").Return("restored-refresh", nil)
	f.sessions.On("Terminate", ctx, session.ID, entity.SessionStatusEnded, mock.Anything).Return(nil)
	f.clients.On("FindByID", ctx, adminID).Return(&entity.Client{
		ID: adminID, Email: "admin@example.com", Role: entity.RoleClient,
		Tags: []string{entity.RoleSuperAdmin},
	}, nil)

	result, err := f.svc.End(ctx, impersonatingClaims(session.ID), service.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, result.CredentialsRecovered)
	assert.Equal(t, "restored-access", result.OriginalAccessToken)
	assert.Equal(t, "restored-refresh", result.OriginalRefreshToken)
	require.NotNil(t, result.Admin)
	// The tag-granted role is reported, not the stored one.
	assert.Equal(t, entity.RoleSuperAdmin, result.Admin.Role)

	require.Len(t, f.sink.ByAction(entity.AuditActionSessionEnd), 1)
	assert.Equal(t, []kafka.EventType{kafka.EventSessionEnded}, f.events.Events)
}

func TestEnd_WithoutImpersonatingClaims(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.End(ctx, nil, service.RequestMeta{})
	assert.ErrorIs(t, err, domainErrors.ErrNoActiveSession)

	_, err = f.svc.End(ctx, &domainService.Claims{ClientID: adminID}, service.RequestMeta{})
	assert.ErrorIs(t, err, domainErrors.ErrNoActiveSession)
}

func TestEnd_NotIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session := activeSession()
	session.Status = entity.SessionStatusEnded

	f.sessions.On("FindByID", ctx, session.ID).Return(session, nil)

	_, err := f.svc.End(ctx, impersonatingClaims(session.ID), service.RequestMeta{})
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
	f.sessions.AssertNotCalled(t, "Terminate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnd_UnsealFailureStillEndsSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session := activeSession()

	f.sessions.On("FindByID", ctx, session.ID).Return(session, nil)
	f.vault.On("Unseal", "sealed-access").Return("", domainErrors.ErrDecryptionFailed)
	f.vault.On("Unseal", "sealed-refresh").Return("", domainErrors.ErrDecryptionFailed)
	f.sessions.On("Terminate", ctx, session.ID, entity.SessionStatusEnded, mock.Anything).Return(nil)
	f.clients.On("FindByID", ctx, adminID).Return(nil, domainErrors.ErrClientNotFound)

	result, err := f.svc.End(ctx, impersonatingClaims(session.ID), service.RequestMeta{})
	require.NoError(t, err)
	assert.False(t, result.CredentialsRecovered)
	assert.Empty(t, result.OriginalAccessToken)
	assert.Empty(t, result.OriginalRefreshToken)
	f.sessions.AssertCalled(t, "Terminate", ctx, session.ID, entity.SessionStatusEnded, mock.Anything)
}

func TestForceEnd_HappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session := activeSession()
	caller := "d0000000-0000-0000-0000-000000000009"

	f.sessions.On("FindByID", ctx, session.ID).Return(session, nil)
	f.sessions.On("Terminate", ctx, session.ID, entity.SessionStatusForceEnded, mock.Anything).Return(nil)

	err := f.svc.ForceEnd(ctx, session.ID, caller, service.RequestMeta{})
	require.NoError(t, err)

	entries := f.sink.ByAction(entity.AuditActionForceEnd)
	require.Len(t, entries, 1)
	// Attribution goes to the operator that forced the termination.
	assert.Equal(t, caller, entries[0].AdminID)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(entries[0].RequestBodySanitized, &body))
	assert.Equal(t, caller, body["forcedBy"])

	assert.Equal(t, []kafka.EventType{kafka.EventSessionForceEnded}, f.events.Events)
}

func TestForceEnd_AlreadyTerminated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session := activeSession()
	session.Status = entity.SessionStatusExpired

	f.sessions.On("FindByID", ctx, session.ID).Return(session, nil)

	err := f.svc.ForceEnd(ctx, session.ID, adminID, service.RequestMeta{})
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestGetActive_Impersonating(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session := activeSession()

	f.sessions.On("FindByID", ctx, session.ID).Return(session, nil)
	f.clients.On("FindByID", ctx, adminID).Return(&entity.Client{ID: adminID, Email: "admin@example.com"}, nil)
	f.clients.On("FindByID", ctx, clientID).Return(targetClient(), nil)

	status, err := f.svc.GetActive(ctx, impersonatingClaims(session.ID), adminID)
	require.NoError(t, err)
	assert.True(t, status.IsImpersonating)
	assert.True(t, status.HasActiveSession)
	require.NotNil(t, status.Session)
	assert.Equal(t, session.ID, status.Session.ID)
	assert.Equal(t, clientID, status.Session.ImpersonatedClient.ID)
}

func TestGetActive_PlainAdminWithSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.sessions.On("FindActiveByAdminID", ctx, adminID).Return(activeSession(), nil)

	status, err := f.svc.GetActive(ctx, &domainService.Claims{ClientID: adminID}, adminID)
	require.NoError(t, err)
	assert.False(t, status.IsImpersonating)
	assert.True(t, status.HasActiveSession)
	assert.Nil(t, status.Session)
}

func TestGetActive_NoSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.sessions.On("FindActiveByAdminID", ctx, adminID).Return(nil, domainErrors.ErrSessionNotFound)

	status, err := f.svc.GetActive(ctx, &domainService.Claims{ClientID: adminID}, adminID)
	require.NoError(t, err)
	assert.False(t, status.HasActiveSession)
}

func TestHistory_SummariesResolved(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := activeSession()
	second := activeSession()
	second.ID = "b0000000-0000-0000-0000-000000000004"
	second.Status = entity.SessionStatusEnded

	f.sessions.On("List", ctx, mock.Anything).
		Return([]*entity.ImpersonationSession{first, second}, 2, nil)
	f.clients.On("FindByID", ctx, adminID).Return(&entity.Client{ID: adminID, Email: "admin@example.com"}, nil).Once()
	f.clients.On("FindByID", ctx, clientID).Return(targetClient(), nil).Once()

	items, total, err := f.svc.History(ctx, repository.ListSessionParams{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, adminID, items[0].Admin.ID)
	assert.Equal(t, clientID, items[1].ImpersonatedClient.ID)
	// Each distinct account is looked up once even across sessions.
	f.clients.AssertNumberOfCalls(t, "FindByID", 2)
}
