package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssignRoleIsUpsert(t *testing.T) {
	store := NewMemoryStore(DefaultCatalog)
	ctx := context.Background()

	first, err := store.AssignRole(ctx, "u-1", Creator, "admin-1")
	require.NoError(t, err)
	second, err := store.AssignRole(ctx, "u-1", Creator, "admin-2")
	require.NoError(t, err)

	require.Equal(t, 1, store.AssignmentCount())
	require.Equal(t, "admin-1", second.AssignedBy)
	require.Equal(t, *first.CreatedAt, *second.CreatedAt)
}

func TestRemoveAbsentRoleIsNoop(t *testing.T) {
	store := NewMemoryStore(DefaultCatalog)
	ctx := context.Background()
	require.NoError(t, store.RemoveRole(ctx, "ghost", Admin))

	_, err := store.AssignRole(ctx, "u-1", Verifier, "admin-1")
	require.NoError(t, err)
	require.NoError(t, store.RemoveRole(ctx, "u-1", Creator))
	require.Equal(t, 1, store.AssignmentCount())
}

func TestUsersWithRolesIncludesPlaceholders(t *testing.T) {
	store := NewMemoryStore(DefaultCatalog)
	ctx := context.Background()
	store.AddUser("u-1", "ana@example.com")
	store.AddUser("u-2", "ben@example.com")
	_, err := store.AssignRole(ctx, "u-1", Admin, "seed")
	require.NoError(t, err)
	_, err = store.AssignRole(ctx, "u-1", Creator, "seed")
	require.NoError(t, err)

	rows, err := store.GetAllUsersWithRoles(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	sets := GroupAssignments(rows)
	require.Len(t, sets, 2)
	require.Equal(t, "u-1", sets[0].UserID)
	require.Equal(t, []Role{Admin, Creator}, sets[0].Roles)
	require.Equal(t, "u-2", sets[1].UserID)
	require.Empty(t, sets[1].Roles)
	for _, s := range sets {
		require.Equal(t, len(s.Roles) > 0, s.HasRoles)
	}
	require.Equal(t, 1, CountHolders(sets, Admin))

	require.NoError(t, store.RemoveRole(ctx, "u-1", Admin))
	require.NoError(t, store.RemoveRole(ctx, "u-1", Creator))
	rows, err = store.GetAllUsersWithRoles(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestGroupAssignmentsDeduplicates(t *testing.T) {
	admin := Admin
	rows := []AssignmentRow{
		{UserID: "u-1", Role: &admin},
		{UserID: "u-1", Role: &admin},
		{UserID: "u-1"},
		{UserID: ""},
	}
	sets := GroupAssignments(rows)
	require.Len(t, sets, 1)
	require.Equal(t, []Role{Admin}, sets[0].Roles)
	require.True(t, sets[0].HasRoles)
}

func TestRolePermissionsMirrorCatalog(t *testing.T) {
	store := NewMemoryStore(DefaultCatalog)
	entries, err := store.GetRolePermissions(context.Background(), Verifier)
	require.NoError(t, err)
	require.Len(t, entries, len(DefaultCatalog.ListEntries(Verifier)))
	role, err := store.GetUserRole(context.Background(), "u-9")
	require.NoError(t, err)
	require.Equal(t, StandardUser, role)
}
