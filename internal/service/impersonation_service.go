// File: backend/services/impersonation-service/internal/service/impersonation_service.go
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	domainErrors "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/errors"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
	domainService "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/service"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/events/kafka"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/infrastructure/security"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/utils/metrics"
)

// placeholderRefreshToken is stored when the caller supplies no refresh token,
// so the custody columns are never empty.
const placeholderRefreshToken = "no-refresh-token-provided"

// AuditSink receives audit entries for asynchronous persistence.
type AuditSink interface {
	Record(entry *entity.AuditLogEntry)
}

// EventPublisher publishes impersonation lifecycle events. Publication is
// best-effort: failures are logged, never propagated.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, eventType kafka.EventType, sessionID string, payload interface{}) error
}

// NoopPublisher discards events; used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishSessionEvent(context.Context, kafka.EventType, string, interface{}) error {
	return nil
}

// RequestMeta captures forensic metadata about the triggering HTTP request.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Endpoint  string
	Method    string
	Path      string
}

// Credentials are the operator's own tokens taken into custody at start and
// recovered at end.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// ClientSummary is the account projection embedded in responses.
type ClientSummary struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
	Role  string  `json:"role,omitempty"`
}

// StartResult is the payload returned by a successful Start.
type StartResult struct {
	SessionID          string
	ImpersonationToken string
	ExpiresAt          time.Time
	ImpersonatedClient ClientSummary
	OriginalAdmin      *ClientSummary
}

// EndResult is the payload returned by a successful End. When the vault could
// not recover the credentials, CredentialsRecovered is false and both token
// fields are empty; the operator must re-authenticate.
type EndResult struct {
	OriginalAccessToken  string
	OriginalRefreshToken string
	CredentialsRecovered bool
	Admin                *ClientSummary
}

// SessionDetail describes the caller's own active session.
type SessionDetail struct {
	ID                 string         `json:"id"`
	StartedAt          time.Time      `json:"startedAt"`
	ExpiresAt          time.Time      `json:"expiresAt"`
	Reason             *string        `json:"reason"`
	Admin              *ClientSummary `json:"admin"`
	ImpersonatedClient *ClientSummary `json:"impersonatedClient"`
}

// ActiveStatus reports the caller's current impersonation state. When the
// caller is not impersonating it only says whether any active session exists
// for them, without leaking other operators' session contents.
type ActiveStatus struct {
	IsImpersonating  bool
	HasActiveSession bool
	Session          *SessionDetail
}

// HistoryItem is one session in the history listing.
type HistoryItem struct {
	Session            *entity.ImpersonationSession
	Admin              *ClientSummary
	ImpersonatedClient *ClientSummary
}

// ImpersonationService orchestrates the impersonation session lifecycle:
// invariant checks, credential custody, persistence, audit and token minting.
type ImpersonationService struct {
	clientRepo  repository.ClientRepository
	sessionRepo repository.SessionRepository
	auditRepo   repository.AuditLogRepository
	vault       security.CredentialVault
	tokens      domainService.TokenService
	audit       AuditSink
	events      EventPublisher
	sessionTTL  time.Duration
	logger      *zap.Logger
}

// NewImpersonationService creates a new ImpersonationService.
func NewImpersonationService(
	clientRepo repository.ClientRepository,
	sessionRepo repository.SessionRepository,
	auditRepo repository.AuditLogRepository,
	vault security.CredentialVault,
	tokens domainService.TokenService,
	audit AuditSink,
	events EventPublisher,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *ImpersonationService {
	return &ImpersonationService{
		clientRepo:  clientRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		vault:       vault,
		tokens:      tokens,
		audit:       audit,
		events:      events,
		sessionTTL:  sessionTTL,
		logger:      logger.Named("impersonation_service"),
	}
}

// Start opens an impersonation session for adminID against targetClientID.
// Preconditions are checked in order, each a distinct failure: target must
// exist, target must not be a peer super admin (checked against the target's
// current effective role), and the admin must not already hold an active
// session. The store-level partial unique index closes the remaining race.
func (s *ImpersonationService) Start(
	ctx context.Context,
	adminID string,
	targetClientID string,
	reason *string,
	creds Credentials,
	meta RequestMeta,
) (*StartResult, error) {
	target, err := s.clientRepo.FindByID(ctx, targetClientID)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			metrics.StartRejectedTotal.WithLabelValues("not_found").Inc()
			return nil, domainErrors.ErrClientNotFound
		}
		return nil, err
	}

	if target.IsSuperAdmin() {
		metrics.StartRejectedTotal.WithLabelValues("peer_admin").Inc()
		return nil, domainErrors.ErrPeerAdminTarget
	}

	if _, err := s.sessionRepo.FindActiveByAdminID(ctx, adminID); err == nil {
		metrics.StartRejectedTotal.WithLabelValues("conflict").Inc()
		return nil, domainErrors.ErrActiveSessionExists
	} else if !domainErrors.IsNotFound(err) {
		return nil, err
	}

	refreshToken := creds.RefreshToken
	if refreshToken == "" {
		refreshToken = placeholderRefreshToken
	}

	sealedAccess, err := s.vault.Seal(creds.AccessToken)
	if err != nil {
		return nil, err
	}
	sealedRefresh, err := s.vault.Seal(refreshToken)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &entity.ImpersonationSession{
		ID:                    uuid.NewString(),
		AdminID:               adminID,
		ImpersonatedClientID:  target.ID,
		OriginalAccessSealed:  sealedAccess,
		OriginalRefreshSealed: sealedRefresh,
		Status:                entity.SessionStatusActive,
		Reason:                reason,
		IPAddress:             optional(meta.IPAddress),
		UserAgent:             optional(meta.UserAgent),
		StartedAt:             now,
		ExpiresAt:             now.Add(s.sessionTTL),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if domainErrors.IsConflict(err) {
			metrics.StartRejectedTotal.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}

	token, err := s.tokens.MintImpersonationToken(target, adminID, session.ID)
	if err != nil {
		// Without a token the session is unusable; close it rather than
		// leaving the admin locked out by the single-session invariant.
		if termErr := s.sessionRepo.Terminate(ctx, session.ID, entity.SessionStatusEnded, time.Now()); termErr != nil {
			s.logger.Error("Failed to close unusable session after minting failure",
				zap.Error(termErr), zap.String("session_id", session.ID))
		}
		return nil, err
	}

	s.recordLifecycle(session, entity.AuditActionSessionStart, adminID, meta,
		map[string]interface{}{"reason": reason})
	s.publish(ctx, kafka.EventSessionStarted, session)
	metrics.SessionsStartedTotal.Inc()

	s.logger.Info("Impersonation session started",
		zap.String("session_id", session.ID),
		zap.String("admin_id", adminID),
		zap.String("target_client_id", target.ID),
	)

	result := &StartResult{
		SessionID:          session.ID,
		ImpersonationToken: token,
		ExpiresAt:          session.ExpiresAt,
		ImpersonatedClient: summarize(target),
	}
	// Admin profile is informational; its absence does not fail the start.
	if admin, err := s.clientRepo.FindByID(ctx, adminID); err == nil {
		summary := summarize(admin)
		result.OriginalAdmin = &summary
	}
	return result, nil
}

// End closes the caller's own session and recovers the sealed credentials.
// Requires the caller's claims to carry isImpersonating with a resolvable
// session id. Ending is not idempotent: retrying after success yields
// ErrSessionNotFound.
func (s *ImpersonationService) End(ctx context.Context, claims *domainService.Claims, meta RequestMeta) (*EndResult, error) {
	if claims == nil || !claims.IsImpersonating || claims.ImpersonationSessionID == "" {
		return nil, domainErrors.ErrNoActiveSession
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.ImpersonationSessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != entity.SessionStatusActive {
		return nil, domainErrors.ErrSessionNotFound
	}

	// Unseal failure is recoverable: the session still ends, the operator is
	// told to re-authenticate instead of being left stuck impersonating.
	result := &EndResult{CredentialsRecovered: true}
	if access, err := s.vault.Unseal(session.OriginalAccessSealed); err != nil {
		s.logger.Error("Failed to unseal original access token; operator must re-authenticate",
			zap.Error(err), zap.String("session_id", session.ID))
		result.CredentialsRecovered = false
	} else {
		result.OriginalAccessToken = access
	}
	if refresh, err := s.vault.Unseal(session.OriginalRefreshSealed); err != nil {
		s.logger.Error("Failed to unseal original refresh token; operator must re-authenticate",
			zap.Error(err), zap.String("session_id", session.ID))
		result.CredentialsRecovered = false
		result.OriginalAccessToken = ""
	} else if result.CredentialsRecovered {
		result.OriginalRefreshToken = refresh
	}

	if err := s.sessionRepo.Terminate(ctx, session.ID, entity.SessionStatusEnded, time.Now()); err != nil {
		return nil, err
	}
	session.Status = entity.SessionStatusEnded

	s.recordLifecycle(session, entity.AuditActionSessionEnd, session.AdminID, meta, nil)
	s.publish(ctx, kafka.EventSessionEnded, session)
	metrics.SessionsTerminatedTotal.WithLabelValues(string(entity.SessionStatusEnded)).Inc()

	s.logger.Info("Impersonation session ended",
		zap.String("session_id", session.ID),
		zap.String("admin_id", session.AdminID),
		zap.Bool("credentials_recovered", result.CredentialsRecovered),
	)

	if admin, err := s.clientRepo.FindByID(ctx, session.AdminID); err == nil {
		summary := summarize(admin)
		summary.Role = admin.EffectiveRole()
		result.Admin = &summary
	}
	return result, nil
}

// ForceEnd terminates another operator's active session. An incident-response
// control: any super admin may call it, it recovers no credentials, and the
// audit entry is attributed to the calling admin.
func (s *ImpersonationService) ForceEnd(ctx context.Context, sessionID, callingAdminID string, meta RequestMeta) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != entity.SessionStatusActive {
		return domainErrors.ErrSessionNotFound
	}

	if err := s.sessionRepo.Terminate(ctx, session.ID, entity.SessionStatusForceEnded, time.Now()); err != nil {
		return err
	}
	session.Status = entity.SessionStatusForceEnded

	entry := s.lifecycleEntry(session, entity.AuditActionForceEnd, callingAdminID, meta,
		map[string]interface{}{"forcedBy": callingAdminID})
	s.audit.Record(entry)
	s.publish(ctx, kafka.EventSessionForceEnded, session)
	metrics.SessionsTerminatedTotal.WithLabelValues(string(entity.SessionStatusForceEnded)).Inc()

	s.logger.Warn("Impersonation session force-ended",
		zap.String("session_id", session.ID),
		zap.String("session_admin_id", session.AdminID),
		zap.String("forced_by", callingAdminID),
	)
	return nil
}

// GetActive returns the caller's impersonation status. When impersonating it
// includes the session detail; otherwise only whether any active session
// exists for the principal.
func (s *ImpersonationService) GetActive(ctx context.Context, claims *domainService.Claims, principalID string) (*ActiveStatus, error) {
	if claims != nil && claims.IsImpersonating && claims.ImpersonationSessionID != "" {
		session, err := s.sessionRepo.FindByID(ctx, claims.ImpersonationSessionID)
		if err != nil {
			if domainErrors.IsNotFound(err) {
				return &ActiveStatus{}, nil
			}
			return nil, err
		}

		detail := &SessionDetail{
			ID:        session.ID,
			StartedAt: session.StartedAt,
			ExpiresAt: session.ExpiresAt,
			Reason:    session.Reason,
		}
		if admin, err := s.clientRepo.FindByID(ctx, session.AdminID); err == nil {
			summary := summarize(admin)
			detail.Admin = &summary
		}
		if client, err := s.clientRepo.FindByID(ctx, session.ImpersonatedClientID); err == nil {
			summary := summarize(client)
			detail.ImpersonatedClient = &summary
		}
		return &ActiveStatus{IsImpersonating: true, HasActiveSession: true, Session: detail}, nil
	}

	if _, err := s.sessionRepo.FindActiveByAdminID(ctx, principalID); err != nil {
		if domainErrors.IsNotFound(err) {
			return &ActiveStatus{}, nil
		}
		return nil, err
	}
	return &ActiveStatus{HasActiveSession: true}, nil
}

// History returns paginated sessions with admin and client summaries.
func (s *ImpersonationService) History(ctx context.Context, params repository.ListSessionParams) ([]*HistoryItem, int, error) {
	sessions, total, err := s.sessionRepo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	// Summaries are looked up once per distinct account.
	cache := map[string]*ClientSummary{}
	lookup := func(id string) *ClientSummary {
		if summary, ok := cache[id]; ok {
			return summary
		}
		client, err := s.clientRepo.FindByID(ctx, id)
		if err != nil {
			cache[id] = nil
			return nil
		}
		summary := summarize(client)
		cache[id] = &summary
		return &summary
	}

	items := make([]*HistoryItem, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, &HistoryItem{
			Session:            session,
			Admin:              lookup(session.AdminID),
			ImpersonatedClient: lookup(session.ImpersonatedClientID),
		})
	}
	return items, total, nil
}

// SessionAuditLogs returns the audit trail for one session, oldest first.
func (s *ImpersonationService) SessionAuditLogs(ctx context.Context, params repository.ListAuditLogParams) ([]*entity.AuditLogEntry, int, error) {
	return s.auditRepo.ListBySessionID(ctx, params)
}

func (s *ImpersonationService) recordLifecycle(
	session *entity.ImpersonationSession,
	action entity.AuditActionType,
	adminID string,
	meta RequestMeta,
	body map[string]interface{},
) {
	s.audit.Record(s.lifecycleEntry(session, action, adminID, meta, body))
}

func (s *ImpersonationService) lifecycleEntry(
	session *entity.ImpersonationSession,
	action entity.AuditActionType,
	adminID string,
	meta RequestMeta,
	body map[string]interface{},
) *entity.AuditLogEntry {
	status := 200
	entry := &entity.AuditLogEntry{
		SessionID:            session.ID,
		AdminID:              adminID,
		ImpersonatedClientID: session.ImpersonatedClientID,
		ActionType:           action,
		Endpoint:             meta.Endpoint,
		Method:               meta.Method,
		RequestPath:          meta.Path,
		ResponseStatus:       &status,
		IPAddress:            optional(meta.IPAddress),
		UserAgent:            optional(meta.UserAgent),
	}
	if body != nil {
		if raw, err := json.Marshal(body); err == nil {
			entry.RequestBodySanitized = raw
		}
	}
	return entry
}

func (s *ImpersonationService) publish(ctx context.Context, eventType kafka.EventType, session *entity.ImpersonationSession) {
	payload := map[string]interface{}{
		"sessionId":            session.ID,
		"adminId":              session.AdminID,
		"impersonatedClientId": session.ImpersonatedClientID,
		"status":               session.Status,
	}
	if err := s.events.PublishSessionEvent(ctx, eventType, session.ID, payload); err != nil {
		s.logger.Error("Failed to publish impersonation event",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
			zap.String("session_id", session.ID),
		)
	}
}

func summarize(client *entity.Client) ClientSummary {
	return ClientSummary{
		ID:    client.ID,
		Email: client.Email,
		Name:  client.Name,
		Role:  client.EffectiveRole(),
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
