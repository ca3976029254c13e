// File: backend/services/impersonation-service/internal/infrastructure/database/client_postgres_repository.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	domainErrors "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/errors"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
)

type pgxClientRepository struct {
	db *pgxpool.Pool
}

// NewPgxClientRepository creates a read-only repository over the platform's
// "clients" table. The table is owned by the identity store; this service
// never writes to it.
func NewPgxClientRepository(db *pgxpool.Pool) repository.ClientRepository {
	return &pgxClientRepository{db: db}
}

func (r *pgxClientRepository) FindByID(ctx context.Context, id string) (*entity.Client, error) {
	query := `SELECT id, email, name, role, COALESCE(tags, '{}') FROM clients WHERE id = $1`
	client := &entity.Client{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&client.ID, &client.Email, &client.Name, &client.Role, &client.Tags,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client by ID: %w", err)
	}
	return client, nil
}

var _ repository.ClientRepository = (*pgxClientRepository)(nil)
