// File: backend/services/impersonation-service/internal/domain/entity/client_entity.go
package entity

// Role names recognized by the impersonation subsystem. The broader account
// model lives in the identity store; only the super admin predicate matters
// here.
const (
	RoleSuperAdmin = "super_admin"
	RoleClient     = "client"
)

// Client is the minimal projection of an account from the identity store
// ("clients" table) needed by the impersonation subsystem.
type Client struct {
	ID    string   `db:"id"`
	Email string   `db:"email"`
	Name  *string  `db:"name"` // Nullable
	Role  string   `db:"role"`
	Tags  []string `db:"tags"`
}

// EffectiveRole resolves the highest-privilege role for the client,
// considering both the direct role field and role-granting tags. A client
// tagged "super_admin" is a super admin regardless of its role column.
func (c *Client) EffectiveRole() string {
	if c.Role == RoleSuperAdmin {
		return RoleSuperAdmin
	}
	for _, tag := range c.Tags {
		if tag == RoleSuperAdmin {
			return RoleSuperAdmin
		}
	}
	if c.Role != "" {
		return c.Role
	}
	return RoleClient
}

// IsSuperAdmin reports whether the client's effective role is super_admin.
func (c *Client) IsSuperAdmin() bool {
	return c.EffectiveRole() == RoleSuperAdmin
}
