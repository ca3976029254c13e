// File: backend/services/impersonation-service/internal/domain/repository/session_repository.go
package repository

import (
	"context"
	"time"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
)

// ListSessionParams holds filters and pagination for session history queries.
type ListSessionParams struct {
	AdminID  *string
	ClientID *string
	Limit    int
	Offset   int
}

// SessionRepository persists impersonation session records. Sessions are never
// deleted; all terminations are conditional status transitions so that only
// one terminator wins a race.
type SessionRepository interface {
	// Create inserts a new session row. A violation of the partial unique
	// index on (admin_id) WHERE status='active' is surfaced as
	// domainErrors.ErrActiveSessionExists.
	Create(ctx context.Context, session *entity.ImpersonationSession) error

	// FindByID returns the session regardless of status, or ErrSessionNotFound.
	FindByID(ctx context.Context, id string) (*entity.ImpersonationSession, error)

	// FindActiveByID returns the session only if it is active and not past its
	// deadline, or ErrSessionNotFound.
	FindActiveByID(ctx context.Context, id string) (*entity.ImpersonationSession, error)

	// FindActiveByAdminID returns the admin's active session, or
	// ErrSessionNotFound when none exists.
	FindActiveByAdminID(ctx context.Context, adminID string) (*entity.ImpersonationSession, error)

	// Terminate transitions the session from active to the given terminal
	// status, stamping ended_at. Returns ErrSessionNotFound when the session
	// does not exist or has already left the active state.
	Terminate(ctx context.Context, id string, status entity.SessionStatus, endedAt time.Time) error

	// List returns sessions newest-first with the total count matching the
	// filters.
	List(ctx context.Context, params ListSessionParams) ([]*entity.ImpersonationSession, int, error)

	// ExpireDue transitions every active session past its deadline to expired
	// in one bulk conditional update and returns the affected sessions.
	// Idempotent: an immediate second run affects nothing.
	ExpireDue(ctx context.Context, now time.Time) ([]*entity.ImpersonationSession, error)
}
