// File: backend/services/impersonation-service/internal/service/sweeper.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/events/kafka"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/utils/metrics"
)

// ExpirySweeper transitions active sessions past their deadline to expired.
// Idempotent: the bulk update is conditional on status, so a second immediate
// run finds nothing to do.
type ExpirySweeper struct {
	sessionRepo repository.SessionRepository
	audit       AuditSink
	events      EventPublisher
	interval    time.Duration
	logger      *zap.Logger
}

// NewExpirySweeper creates a new ExpirySweeper.
func NewExpirySweeper(
	sessionRepo repository.SessionRepository,
	audit AuditSink,
	events EventPublisher,
	interval time.Duration,
	logger *zap.Logger,
) *ExpirySweeper {
	return &ExpirySweeper{
		sessionRepo: sessionRepo,
		audit:       audit,
		events:      events,
		interval:    interval,
		logger:      logger.Named("expiry_sweeper"),
	}
}

// Sweep expires every overdue active session in one bulk conditional update
// and returns the count affected. Expiry is a security-relevant transition,
// so each swept session gets a session_expired audit entry.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	expired, err := s.sessionRepo.ExpireDue(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	for _, session := range expired {
		s.audit.Record(&entity.AuditLogEntry{
			SessionID:            session.ID,
			AdminID:              session.AdminID,
			ImpersonatedClientID: session.ImpersonatedClientID,
			ActionType:           entity.AuditActionSessionExpired,
		})
		payload := map[string]interface{}{
			"sessionId":            session.ID,
			"adminId":              session.AdminID,
			"impersonatedClientId": session.ImpersonatedClientID,
			"status":               session.Status,
		}
		if err := s.events.PublishSessionEvent(ctx, kafka.EventSessionExpired, session.ID, payload); err != nil {
			s.logger.Error("Failed to publish expiry event",
				zap.Error(err), zap.String("session_id", session.ID))
		}
		metrics.SessionsTerminatedTotal.WithLabelValues(string(entity.SessionStatusExpired)).Inc()
	}

	if len(expired) > 0 {
		s.logger.Info("Expired overdue impersonation sessions", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("Sweep failed", zap.Error(err))
			}
		}
	}
}
