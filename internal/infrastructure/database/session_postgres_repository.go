// File: backend/services/impersonation-service/internal/infrastructure/database/session_postgres_repository.go
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	domainErrors "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/errors"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
)

const uniqueViolationCode = "23505"

const sessionColumns = `id, admin_id, impersonated_client_id, original_access_token_sealed,
		original_refresh_token_sealed, status, reason, ip_address, user_agent,
		started_at, expires_at, ended_at`

type pgxSessionRepository struct {
	db *pgxpool.Pool
}

// NewPgxSessionRepository creates a new instance of pgxSessionRepository.
func NewPgxSessionRepository(db *pgxpool.Pool) repository.SessionRepository {
	return &pgxSessionRepository{db: db}
}

func (r *pgxSessionRepository) Create(ctx context.Context, session *entity.ImpersonationSession) error {
	query := `
		INSERT INTO impersonation_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.Exec(ctx, query,
		session.ID, session.AdminID, session.ImpersonatedClientID,
		session.OriginalAccessSealed, session.OriginalRefreshSealed,
		session.Status, session.Reason, session.IPAddress, session.UserAgent,
		session.StartedAt, session.ExpiresAt, session.EndedAt,
	)
	if err != nil {
		// The partial unique index on (admin_id) WHERE status = 'active'
		// closes the check-then-act race: the losing insert surfaces as the
		// same Conflict error callers see from the precondition check.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domainErrors.ErrActiveSessionExists
		}
		return fmt.Errorf("failed to create impersonation session: %w", err)
	}
	return nil
}

func (r *pgxSessionRepository) FindByID(ctx context.Context, id string) (*entity.ImpersonationSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM impersonation_sessions WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *pgxSessionRepository) FindActiveByID(ctx context.Context, id string) (*entity.ImpersonationSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM impersonation_sessions
		WHERE id = $1 AND status = 'active' AND expires_at > $2`
	return r.scanOne(r.db.QueryRow(ctx, query, id, time.Now()))
}

func (r *pgxSessionRepository) FindActiveByAdminID(ctx context.Context, adminID string) (*entity.ImpersonationSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM impersonation_sessions
		WHERE admin_id = $1 AND status = 'active' AND expires_at > $2`
	return r.scanOne(r.db.QueryRow(ctx, query, adminID, time.Now()))
}

func (r *pgxSessionRepository) Terminate(ctx context.Context, id string, status entity.SessionStatus, endedAt time.Time) error {
	// Conditional on status = 'active' so only one terminator wins when two
	// race; the loser observes zero rows affected.
	query := `
		UPDATE impersonation_sessions
		SET status = $2, ended_at = $3
		WHERE id = $1 AND status = 'active'`
	commandTag, err := r.db.Exec(ctx, query, id, status, endedAt)
	if err != nil {
		return fmt.Errorf("failed to terminate impersonation session: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.ErrSessionNotFound
	}
	return nil
}

func (r *pgxSessionRepository) List(ctx context.Context, params repository.ListSessionParams) ([]*entity.ImpersonationSession, int, error) {
	var baseQuery strings.Builder
	baseQuery.WriteString(`SELECT ` + sessionColumns + ` FROM impersonation_sessions WHERE 1=1`)

	var countQuery strings.Builder
	countQuery.WriteString(`SELECT COUNT(*) FROM impersonation_sessions WHERE 1=1`)

	args := []interface{}{}
	argCount := 1

	addFilter := func(condition string, value interface{}) {
		baseQuery.WriteString(fmt.Sprintf(" AND %s $%d", condition, argCount))
		countQuery.WriteString(fmt.Sprintf(" AND %s $%d", condition, argCount))
		args = append(args, value)
		argCount++
	}

	if params.AdminID != nil && *params.AdminID != "" {
		addFilter("admin_id =", *params.AdminID)
	}
	if params.ClientID != nil && *params.ClientID != "" {
		addFilter("impersonated_client_id =", *params.ClientID)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count impersonation sessions: %w", err)
	}
	if total == 0 {
		return []*entity.ImpersonationSession{}, 0, nil
	}

	baseQuery.WriteString(" ORDER BY started_at DESC")

	if params.Limit > 0 {
		baseQuery.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, params.Limit)
		argCount++
	}
	if params.Offset > 0 {
		baseQuery.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
		args = append(args, params.Offset)
		argCount++
	}

	rows, err := r.db.Query(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list impersonation sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*entity.ImpersonationSession
	for rows.Next() {
		session := &entity.ImpersonationSession{}
		if err := scanSession(rows, session); err != nil {
			return nil, 0, fmt.Errorf("failed to scan session during list: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error after iterating session list: %w", err)
	}

	return sessions, total, nil
}

func (r *pgxSessionRepository) ExpireDue(ctx context.Context, now time.Time) ([]*entity.ImpersonationSession, error) {
	query := `
		UPDATE impersonation_sessions
		SET status = 'expired', ended_at = $1
		WHERE status = 'active' AND expires_at < $1
		RETURNING ` + sessionColumns
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire due sessions: %w", err)
	}
	defer rows.Close()

	var expired []*entity.ImpersonationSession
	for rows.Next() {
		session := &entity.ImpersonationSession{}
		if err := scanSession(rows, session); err != nil {
			return nil, fmt.Errorf("failed to scan expired session: %w", err)
		}
		expired = append(expired, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating expired sessions: %w", err)
	}
	return expired, nil
}

func (r *pgxSessionRepository) scanOne(row pgx.Row) (*entity.ImpersonationSession, error) {
	session := &entity.ImpersonationSession{}
	if err := scanSession(row, session); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find impersonation session: %w", err)
	}
	return session, nil
}

func scanSession(row pgx.Row, session *entity.ImpersonationSession) error {
	return row.Scan(
		&session.ID, &session.AdminID, &session.ImpersonatedClientID,
		&session.OriginalAccessSealed, &session.OriginalRefreshSealed,
		&session.Status, &session.Reason, &session.IPAddress, &session.UserAgent,
		&session.StartedAt, &session.ExpiresAt, &session.EndedAt,
	)
}

var _ repository.SessionRepository = (*pgxSessionRepository)(nil)
