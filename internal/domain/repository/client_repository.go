// File: backend/services/impersonation-service/internal/domain/repository/client_repository.go
package repository

import (
	"context"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
)

// ClientRepository reads accounts from the identity store. The store itself is
// owned by the platform; this subsystem only queries it, and always reads the
// current role rather than caching it.
type ClientRepository interface {
	// FindByID returns the client or domainErrors.ErrClientNotFound.
	FindByID(ctx context.Context, id string) (*entity.Client, error)
}
