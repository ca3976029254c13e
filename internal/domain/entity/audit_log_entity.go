// File: backend/services/impersonation-service/internal/domain/entity/audit_log_entity.go
package entity

import (
	"encoding/json"
	"time"
)

// AuditActionType defines the kind of event an audit entry records.
type AuditActionType string

const (
	AuditActionSessionStart   AuditActionType = "session_start"
	AuditActionSessionEnd     AuditActionType = "session_end"
	AuditActionForceEnd       AuditActionType = "force_end"
	AuditActionSessionExpired AuditActionType = "session_expired"
	AuditActionAPICall        AuditActionType = "api_call"
)

// AuditLogEntry represents one append-only entry in the impersonation audit
// trail, mapping to the "impersonation_audit_logs" table. Entries are written
// once and never mutated; no update or delete path exists.
type AuditLogEntry struct {
	ID                   int64           `db:"id" json:"id"`
	SessionID            string          `db:"session_id" json:"sessionId"`
	AdminID              string          `db:"admin_id" json:"adminId"`
	ImpersonatedClientID string          `db:"impersonated_client_id" json:"impersonatedClientId"`
	ActionType           AuditActionType `db:"action_type" json:"actionType"`
	Endpoint             string          `db:"endpoint" json:"endpoint"`
	Method               string          `db:"method" json:"method"`
	RequestPath          string          `db:"request_path" json:"requestPath"`
	RequestBodySanitized json.RawMessage `db:"request_body_sanitized" json:"requestBodySanitized,omitempty"` // Nullable JSONB, always pre-sanitized
	ResponseStatus       *int            `db:"response_status" json:"responseStatus"`                        // Nullable
	ResponseSummary      *string         `db:"response_summary" json:"responseSummary"`                      // Nullable: "success", error string, or "unknown"
	DurationMs           *int64          `db:"duration_ms" json:"durationMs"`                                // Nullable
	IPAddress            *string         `db:"ip_address" json:"ipAddress"`                                  // Nullable
	UserAgent            *string         `db:"user_agent" json:"userAgent"`                                  // Nullable
	CreatedAt            time.Time       `db:"created_at" json:"createdAt"`
}
