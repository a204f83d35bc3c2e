package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duriyam/operate/internal/platform/db"
	"github.com/duriyam/operate/internal/shared"
)

var _ Backend = (*PGStore)(nil)

// PGStore implements Backend directly against the backend's PostgreSQL schema.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore backed by the provided pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// ResolveRoles returns the roles assigned to the user.
func (s *PGStore) ResolveRoles(ctx context.Context, userID string) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		role, err := ParseRole(raw)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CheckPermission calls the has_permission stored function.
func (s *PGStore) CheckPermission(ctx context.Context, userID, permission string, resource *string) (bool, error) {
	var granted bool
	err := s.pool.QueryRow(ctx, `SELECT has_permission($1, $2, $3)`, userID, permission, resource).Scan(&granted)
	return granted, err
}

// GetUserRole returns the alphabetically first role or "user".
func (s *PGStore) GetUserRole(ctx context.Context, userID string) (Role, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT COALESCE((SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role LIMIT 1), 'user')`, userID).Scan(&raw)
	if err != nil {
		return StandardUser, err
	}
	return ParseRole(raw)
}

// HasRole checks whether an assignment row exists.
func (s *PGStore) HasRole(ctx context.Context, userID string, role Role) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`, userID, role.String()).Scan(&exists)
	return exists, err
}

// GetAllRoles returns the stored role/permission table.
func (s *PGStore) GetAllRoles(ctx context.Context) ([]RemoteEntry, error) {
	return s.listEntries(ctx, `SELECT role, permission, resource, description FROM role_permissions ORDER BY role, permission, resource NULLS FIRST`)
}

// GetRolePermissions returns the stored permissions of one role.
func (s *PGStore) GetRolePermissions(ctx context.Context, role Role) ([]RemoteEntry, error) {
	return s.listEntries(ctx, `SELECT role, permission, resource, description FROM role_permissions WHERE role = $1 ORDER BY permission, resource NULLS FIRST`, role.String())
}

// GetAllUsersWithRoles lists every assignment plus placeholder rows for users
// who only appear as creators of balancing jobs.
func (s *PGStore) GetAllUsersWithRoles(ctx context.Context) ([]AssignmentRow, error) {
	const query = `
WITH known AS (
    SELECT id AS user_id, email FROM users
    UNION
    SELECT DISTINCT j.created_by, NULL FROM optimization_jobs j
    WHERE j.created_by IS NOT NULL AND NOT EXISTS (SELECT 1 FROM users u WHERE u.id = j.created_by)
)
SELECT k.user_id::text, COALESCE(k.email, ''), ur.role, ur.assigned_by::text, ur.created_at
FROM known k
LEFT JOIN user_roles ur ON ur.user_id = k.user_id
ORDER BY k.email NULLS LAST, k.user_id, ur.role`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AssignmentRow
	for rows.Next() {
		var (
			row        AssignmentRow
			rawRole    *string
			assignedBy *string
			createdAt  *time.Time
		)
		if err := rows.Scan(&row.UserID, &row.Email, &rawRole, &assignedBy, &createdAt); err != nil {
			return nil, err
		}
		if rawRole != nil {
			role, err := ParseRole(*rawRole)
			if err != nil {
				return nil, err
			}
			row.Role = &role
		}
		if assignedBy != nil {
			row.AssignedBy = *assignedBy
		}
		row.CreatedAt = createdAt
		out = append(out, row)
	}
	return out, rows.Err()
}

// AssignRole upserts the assignment; an existing row keeps its audit metadata.
func (s *PGStore) AssignRole(ctx context.Context, userID string, role Role, assignedBy string) (AssignmentRow, error) {
	const query = `
INSERT INTO user_roles (user_id, role, assigned_by)
VALUES ($1, $2, NULLIF($3, '')::uuid)
ON CONFLICT (user_id, role) DO UPDATE SET role = EXCLUDED.role
RETURNING user_id::text, role, COALESCE(assigned_by::text, ''), created_at`
	var (
		row     AssignmentRow
		rawRole string
		created time.Time
	)
	err := s.pool.QueryRow(ctx, query, userID, role.String(), assignedBy).Scan(&row.UserID, &rawRole, &row.AssignedBy, &created)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return AssignmentRow{}, fmt.Errorf("rbac: assign %s to %s: %w", role, userID, shared.ErrNotFound)
		}
		return AssignmentRow{}, err
	}
	parsed, err := ParseRole(rawRole)
	if err != nil {
		return AssignmentRow{}, err
	}
	row.Role = &parsed
	row.CreatedAt = &created
	return row, nil
}

// RemoveRole deletes the assignment. Deleting nothing is not an error.
func (s *PGStore) RemoveRole(ctx context.Context, userID string, role Role) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role.String())
	return err
}

// SyncCatalog replaces the stored role/permission table with the catalog grants.
func (s *PGStore) SyncCatalog(ctx context.Context, catalog *Catalog) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions`); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, role := range AllRoles() {
			for _, e := range catalog.ListEntries(role) {
				batch.Queue(`INSERT INTO role_permissions (role, permission, resource, description) VALUES ($1, $2, $3, $4)`,
					role.String(), e.Permission, e.Resource, e.Description)
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *PGStore) listEntries(ctx context.Context, query string, args ...any) ([]RemoteEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RemoteEntry
	for rows.Next() {
		var (
			e       RemoteEntry
			rawRole string
		)
		if err := rows.Scan(&rawRole, &e.Permission, &e.Resource, &e.Description); err != nil {
			return nil, err
		}
		role, err := ParseRole(rawRole)
		if err != nil {
			return nil, err
		}
		e.Role = role
		out = append(out, e)
	}
	return out, rows.Err()
}
