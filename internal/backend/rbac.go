package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/duriyam/operate/internal/rbac"
)

var _ rbac.Backend = (*Client)(nil)

type userArgs struct {
	UserID string `json:"user_id"`
}

type roleArgs struct {
	UserID string    `json:"user_id"`
	Role   rbac.Role `json:"role"`
}

type permissionArgs struct {
	UserID     string  `json:"user_id"`
	Permission string  `json:"permission"`
	Resource   *string `json:"resource"`
}

// ResolveRoles returns every role the user holds.
func (c *Client) ResolveRoles(ctx context.Context, userID string) ([]rbac.Role, error) {
	var rows []struct {
		Role rbac.Role `json:"role"`
	}
	q := url.Values{"select": {"role"}, "user_id": {"eq." + userID}, "order": {"role.asc"}}
	if err := c.do(ctx, http.MethodGet, c.table("user_roles", q), nil, &rows, nil); err != nil {
		return nil, err
	}
	roles := make([]rbac.Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.Role)
	}
	return roles, nil
}

// CheckPermission asks the backend to evaluate a permission.
func (c *Client) CheckPermission(ctx context.Context, userID, permission string, resource *string) (bool, error) {
	var granted bool
	err := c.rpc(ctx, "has_permission", permissionArgs{UserID: userID, Permission: permission, Resource: resource}, &granted)
	return granted, err
}

// GetUserRole returns the alphabetically first role, or "user".
func (c *Client) GetUserRole(ctx context.Context, userID string) (rbac.Role, error) {
	var role rbac.Role
	if err := c.rpc(ctx, "get_user_role", userArgs{UserID: userID}, &role); err != nil {
		return rbac.StandardUser, err
	}
	return role, nil
}

// HasRole reports whether the user holds the role.
func (c *Client) HasRole(ctx context.Context, userID string, role rbac.Role) (bool, error) {
	var held bool
	err := c.rpc(ctx, "has_role", roleArgs{UserID: userID, Role: role}, &held)
	return held, err
}

// GetAllRoles lists the remote role-permission table.
func (c *Client) GetAllRoles(ctx context.Context) ([]rbac.RemoteEntry, error) {
	q := url.Values{"select": {"role,permission,resource,description"}, "order": {"role.asc,permission.asc"}}
	var out []rbac.RemoteEntry
	err := c.do(ctx, http.MethodGet, c.table("role_permissions", q), nil, &out, nil)
	return out, err
}

// GetRolePermissions lists the entries granted to one role.
func (c *Client) GetRolePermissions(ctx context.Context, role rbac.Role) ([]rbac.RemoteEntry, error) {
	q := url.Values{"select": {"role,permission,resource,description"}, "role": {"eq." + role.String()}, "order": {"permission.asc"}}
	var out []rbac.RemoteEntry
	err := c.do(ctx, http.MethodGet, c.table("role_permissions", q), nil, &out, nil)
	return out, err
}

// GetAllUsersWithRoles lists assignments, including placeholder rows.
func (c *Client) GetAllUsersWithRoles(ctx context.Context) ([]rbac.AssignmentRow, error) {
	var out []rbac.AssignmentRow
	err := c.rpc(ctx, "get_all_users_with_roles", struct{}{}, &out)
	return out, err
}

// AssignRole upserts the (user, role) assignment.
func (c *Client) AssignRole(ctx context.Context, userID string, role rbac.Role, assignedBy string) (rbac.AssignmentRow, error) {
	body := map[string]any{"user_id": userID, "role": role, "assigned_by": assignedBy}
	q := url.Values{"on_conflict": {"user_id,role"}}
	header := http.Header{"Prefer": {"resolution=merge-duplicates,return=representation"}}
	var rows []rbac.AssignmentRow
	if err := c.do(ctx, http.MethodPost, c.table("user_roles", q), body, &rows, header); err != nil {
		return rbac.AssignmentRow{}, err
	}
	if len(rows) == 0 {
		return rbac.AssignmentRow{}, fmt.Errorf("assign %s to %s: empty response", role, userID)
	}
	return rows[0], nil
}

// RemoveRole deletes the assignment. Removing an absent assignment succeeds.
func (c *Client) RemoveRole(ctx context.Context, userID string, role rbac.Role) error {
	q := url.Values{"user_id": {"eq." + userID}, "role": {"eq." + role.String()}}
	return c.do(ctx, http.MethodDelete, c.table("user_roles", q), nil, nil, nil)
}
