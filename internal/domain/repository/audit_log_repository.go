// File: backend/services/impersonation-service/internal/domain/repository/audit_log_repository.go
package repository

import (
	"context"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
)

// ListAuditLogParams holds pagination for per-session audit queries.
type ListAuditLogParams struct {
	SessionID string
	Limit     int
	Offset    int
}

// AuditLogRepository is the append-only store for impersonation audit entries.
// There is deliberately no update or delete method.
type AuditLogRepository interface {
	// Create inserts a new audit entry and scans the generated id back.
	Create(ctx context.Context, entry *entity.AuditLogEntry) error

	// ListBySessionID returns entries for one session oldest-first with the
	// total count.
	ListBySessionID(ctx context.Context, params ListAuditLogParams) ([]*entity.AuditLogEntry, int, error)
}
