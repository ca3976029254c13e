// File: backend/services/impersonation-service/internal/domain/entity/impersonation_session_entity.go
package entity

import (
	"time"
)

// SessionStatus defines the lifecycle state of an impersonation session.
// The status is monotonic: once a session leaves "active" it never returns.
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusEnded      SessionStatus = "ended"
	SessionStatusForceEnded SessionStatus = "force_ended"
	SessionStatusExpired    SessionStatus = "expired"
)

// ImpersonationSession represents a time-bounded grant allowing a super admin
// to act with another account's identity, mapping to the
// "impersonation_sessions" table. Sessions are permanent historical record and
// are never deleted.
type ImpersonationSession struct {
	ID                    string        `db:"id"`
	AdminID               string        `db:"admin_id"`
	ImpersonatedClientID  string        `db:"impersonated_client_id"`
	OriginalAccessSealed  string        `db:"original_access_token_sealed"`
	OriginalRefreshSealed string        `db:"original_refresh_token_sealed"`
	Status                SessionStatus `db:"status"`
	Reason                *string       `db:"reason"`     // Nullable
	IPAddress             *string       `db:"ip_address"` // Nullable
	UserAgent             *string       `db:"user_agent"` // Nullable
	StartedAt             time.Time     `db:"started_at"`
	ExpiresAt             time.Time     `db:"expires_at"`
	EndedAt               *time.Time    `db:"ended_at"` // Nullable until terminal
}

// IsActive reports whether the session is active and not past its deadline.
func (s *ImpersonationSession) IsActive(now time.Time) bool {
	return s.Status == SessionStatusActive && now.Before(s.ExpiresAt)
}
