package rbac

import (
	"context"
	"time"
)

// AuthorizationPort is the remote authority answering role and permission questions.
type AuthorizationPort interface {
	ResolveRoles(ctx context.Context, userID string) ([]Role, error)
	CheckPermission(ctx context.Context, userID, permission string, resource *string) (bool, error)
}

// Backend is the full set of role operations offered by the hosted backend.
type Backend interface {
	AuthorizationPort

	GetUserRole(ctx context.Context, userID string) (Role, error)
	HasRole(ctx context.Context, userID string, role Role) (bool, error)
	GetAllRoles(ctx context.Context) ([]RemoteEntry, error)
	GetAllUsersWithRoles(ctx context.Context) ([]AssignmentRow, error)
	AssignRole(ctx context.Context, userID string, role Role, assignedBy string) (AssignmentRow, error)
	RemoveRole(ctx context.Context, userID string, role Role) error
	GetRolePermissions(ctx context.Context, role Role) ([]RemoteEntry, error)
}

// RemoteEntry is a (role, permission, resource) row as stored by the backend.
type RemoteEntry struct {
	Role        Role    `json:"role"`
	Permission  string  `json:"permission"`
	Resource    *string `json:"resource"`
	Description string  `json:"description"`
}

// Key returns the catalog key of the remote entry.
func (e RemoteEntry) Key() string {
	return KeyOf(e.Permission, e.Resource)
}

// Assignment is the durable fact that a user holds a role.
type Assignment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Role       Role      `json:"role"`
	AssignedBy string    `json:"assigned_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// AssignmentRow is an assignment listing row. Role is nil for users known to
// the backend who hold no role (placeholder rows).
type AssignmentRow struct {
	UserID     string     `json:"user_id"`
	Email      string     `json:"email,omitempty"`
	Role       *Role      `json:"role"`
	AssignedBy string     `json:"assigned_by,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}
