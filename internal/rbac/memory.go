package rbac

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Backend = (*MemoryStore)(nil)

// MemoryStore is an in-process Backend honouring the remote contract: assign
// is an upsert unique on (user, role) and removing an absent role is a no-op.
type MemoryStore struct {
	mu          sync.RWMutex
	now         func() time.Time
	users       map[string]string
	assignments map[string]map[Role]Assignment
	entries     []RemoteEntry
}

// NewMemoryStore builds a store whose permission table mirrors the catalog grants.
func NewMemoryStore(catalog *Catalog) *MemoryStore {
	s := &MemoryStore{
		now:         time.Now,
		users:       make(map[string]string),
		assignments: make(map[string]map[Role]Assignment),
	}
	if catalog != nil {
		for _, role := range AllRoles() {
			for _, e := range catalog.ListEntries(role) {
				s.entries = append(s.entries, RemoteEntry{Role: role, Permission: e.Permission, Resource: e.Resource, Description: e.Description})
			}
		}
	}
	return s
}

// AddUser registers a user known through business records.
func (s *MemoryStore) AddUser(userID, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = email
}

// ResolveRoles implements AuthorizationPort.
func (s *MemoryStore) ResolveRoles(ctx context.Context, userID string) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make([]Role, 0, len(s.assignments[userID]))
	for r := range s.assignments[userID] {
		roles = append(roles, r)
	}
	return NewRoleSet(roles...).Sorted(), nil
}

// CheckPermission grants when any held role, or the implicit user role, carries the entry.
func (s *MemoryStore) CheckPermission(ctx context.Context, userID, permission string, resource *string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	held := NewRoleSet(StandardUser)
	for r := range s.assignments[userID] {
		held[r] = struct{}{}
	}
	key := KeyOf(permission, resource)
	for _, e := range s.entries {
		if held.Has(e.Role) && e.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

// GetUserRole implements Backend.
func (s *MemoryStore) GetUserRole(ctx context.Context, userID string) (Role, error) {
	roles, err := s.ResolveRoles(ctx, userID)
	if err != nil {
		return StandardUser, err
	}
	return NewRoleSet(roles...).Primary(), nil
}

// HasRole implements Backend.
func (s *MemoryStore) HasRole(ctx context.Context, userID string, role Role) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assignments[userID][role]
	return ok, nil
}

// GetAllRoles implements Backend.
func (s *MemoryStore) GetAllRoles(ctx context.Context) ([]RemoteEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RemoteEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// GetRolePermissions implements Backend.
func (s *MemoryStore) GetRolePermissions(ctx context.Context, role Role) ([]RemoteEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []RemoteEntry
	for _, e := range s.entries {
		if e.Role == role {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetAllUsersWithRoles lists one row per assignment plus a placeholder row for
// every known user holding nothing.
func (s *MemoryStore) GetAllUsersWithRoles(ctx context.Context) ([]AssignmentRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]struct{}, len(s.users)+len(s.assignments))
	for id := range s.users {
		ids[id] = struct{}{}
	}
	for id := range s.assignments {
		ids[id] = struct{}{}
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	var rows []AssignmentRow
	for _, id := range sorted {
		held := s.assignments[id]
		if len(held) == 0 {
			rows = append(rows, AssignmentRow{UserID: id, Email: s.users[id]})
			continue
		}
		roles := make([]Role, 0, len(held))
		for r := range held {
			roles = append(roles, r)
		}
		for _, r := range NewRoleSet(roles...).Sorted() {
			a := held[r]
			role := r
			created := a.CreatedAt
			rows = append(rows, AssignmentRow{UserID: id, Email: s.users[id], Role: &role, AssignedBy: a.AssignedBy, CreatedAt: &created})
		}
	}
	return rows, nil
}

// AssignRole upserts the (user, role) assignment. An existing assignment is
// returned unchanged.
func (s *MemoryStore) AssignRole(ctx context.Context, userID string, role Role, assignedBy string) (AssignmentRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.users[userID]; !known {
		s.users[userID] = ""
	}
	held, ok := s.assignments[userID]
	if !ok {
		held = make(map[Role]Assignment)
		s.assignments[userID] = held
	}
	a, exists := held[role]
	if !exists {
		a = Assignment{ID: uuid.NewString(), UserID: userID, Role: role, AssignedBy: assignedBy, CreatedAt: s.now().UTC()}
		held[role] = a
	}
	r := a.Role
	created := a.CreatedAt
	return AssignmentRow{UserID: userID, Email: s.users[userID], Role: &r, AssignedBy: a.AssignedBy, CreatedAt: &created}, nil
}

// RemoveRole deletes the (user, role) assignment if present.
func (s *MemoryStore) RemoveRole(ctx context.Context, userID string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.assignments[userID]; ok {
		delete(held, role)
		if len(held) == 0 {
			delete(s.assignments, userID)
		}
	}
	return nil
}

// AssignmentCount returns the number of stored assignments.
func (s *MemoryStore) AssignmentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, held := range s.assignments {
		n += len(held)
	}
	return n
}
