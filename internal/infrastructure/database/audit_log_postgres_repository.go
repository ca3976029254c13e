// File: backend/services/impersonation-service/internal/infrastructure/database/audit_log_postgres_repository.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
)

type pgxAuditLogRepository struct {
	db *pgxpool.Pool
}

// NewPgxAuditLogRepository creates a new instance of pgxAuditLogRepository.
// The repository is append-only: entries can be created and listed, never
// updated or deleted.
func NewPgxAuditLogRepository(db *pgxpool.Pool) repository.AuditLogRepository {
	return &pgxAuditLogRepository{db: db}
}

func (r *pgxAuditLogRepository) Create(ctx context.Context, entry *entity.AuditLogEntry) error {
	// id is BIGSERIAL; created_at defaults to now() when zero.
	query := `
		INSERT INTO impersonation_audit_logs (
			session_id, admin_id, impersonated_client_id, action_type,
			endpoint, method, request_path, request_body_sanitized,
			response_status, response_summary, duration_ms,
			ip_address, user_agent, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE(NULLIF($14, '0001-01-01 00:00:00Z'::timestamptz), now()))
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		entry.SessionID, entry.AdminID, entry.ImpersonatedClientID, entry.ActionType,
		entry.Endpoint, entry.Method, entry.RequestPath, entry.RequestBodySanitized,
		entry.ResponseStatus, entry.ResponseSummary, entry.DurationMs,
		entry.IPAddress, entry.UserAgent, entry.CreatedAt,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

func (r *pgxAuditLogRepository) ListBySessionID(ctx context.Context, params repository.ListAuditLogParams) ([]*entity.AuditLogEntry, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM impersonation_audit_logs WHERE session_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, params.SessionID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit log entries: %w", err)
	}
	if total == 0 {
		return []*entity.AuditLogEntry{}, 0, nil
	}

	query := `
		SELECT id, session_id, admin_id, impersonated_client_id, action_type,
			endpoint, method, request_path, request_body_sanitized,
			response_status, response_summary, duration_ms,
			ip_address, user_agent, created_at
		FROM impersonation_audit_logs
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, params.SessionID, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditLogEntry
	for rows.Next() {
		entry := &entity.AuditLogEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.SessionID, &entry.AdminID, &entry.ImpersonatedClientID, &entry.ActionType,
			&entry.Endpoint, &entry.Method, &entry.RequestPath, &entry.RequestBodySanitized,
			&entry.ResponseStatus, &entry.ResponseSummary, &entry.DurationMs,
			&entry.IPAddress, &entry.UserAgent, &entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log entry during list: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error after iterating audit log list: %w", err)
	}

	return entries, total, nil
}

var _ repository.AuditLogRepository = (*pgxAuditLogRepository)(nil)
