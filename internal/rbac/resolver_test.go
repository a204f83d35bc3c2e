package rbac

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) ResolveRoles(ctx context.Context, userID string) ([]Role, error) {
	return nil, errors.New("connection reset")
}

func (failingReader) GetUserRole(ctx context.Context, userID string) (Role, error) {
	return StandardUser, errors.New("connection reset")
}

func (failingReader) HasRole(ctx context.Context, userID string, role Role) (bool, error) {
	return false, errors.New("connection reset")
}

type countingObserver struct {
	counts map[string]int
}

func (o *countingObserver) ObserveCheck(kind, outcome string) {
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[kind+"/"+outcome]++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolverUserWithoutRows(t *testing.T) {
	store := NewMemoryStore(DefaultCatalog)
	resolver := NewResolver(store, discardLogger(), nil)
	ctx := context.Background()

	require.Equal(t, StandardUser, resolver.GetUserRole(ctx, "u-1"))
	require.False(t, resolver.IsAdmin(ctx, "u-1"))
	require.Empty(t, resolver.Roles(ctx, "u-1"))
}

func TestResolverMultipleRoles(t *testing.T) {
	store := NewMemoryStore(DefaultCatalog)
	ctx := context.Background()
	_, err := store.AssignRole(ctx, "u-2", Verifier, "admin-1")
	require.NoError(t, err)
	_, err = store.AssignRole(ctx, "u-2", Creator, "admin-1")
	require.NoError(t, err)

	resolver := NewResolver(store, discardLogger(), nil)
	require.False(t, resolver.IsAdmin(ctx, "u-2"))
	require.True(t, resolver.IsCreator(ctx, "u-2"))
	require.True(t, resolver.IsVerifier(ctx, "u-2"))
	require.Equal(t, Creator, resolver.GetUserRole(ctx, "u-2"))
	require.Equal(t, []Role{Creator, Verifier}, resolver.Roles(ctx, "u-2").Sorted())
}

func TestResolverFailuresResolveToSafeDefaults(t *testing.T) {
	observer := &countingObserver{}
	resolver := NewResolver(failingReader{}, discardLogger(), observer)
	ctx := context.Background()

	require.Equal(t, StandardUser, resolver.GetUserRole(ctx, "u-3"))
	require.False(t, resolver.IsAdmin(ctx, "u-3"))
	require.False(t, resolver.HasRole(ctx, "u-3", Creator))
	require.Empty(t, resolver.Roles(ctx, "u-3"))
	require.Equal(t, 1, observer.counts["primary_role/error"])
	require.Equal(t, 1, observer.counts["roles/error"])
	require.Equal(t, 2, observer.counts["role/error"])
}

func TestResolverEmptyUserID(t *testing.T) {
	resolver := NewResolver(failingReader{}, discardLogger(), nil)
	require.False(t, resolver.IsAdmin(context.Background(), ""))
	require.Equal(t, StandardUser, resolver.GetUserRole(context.Background(), ""))
}

type primaryOnlyReader struct {
	failingReader
	role Role
}

func (r primaryOnlyReader) GetUserRole(ctx context.Context, userID string) (Role, error) {
	return r.role, nil
}

func TestResolverGetUserRoleAsksBackend(t *testing.T) {
	resolver := NewResolver(primaryOnlyReader{role: Verifier}, discardLogger(), nil)
	require.Equal(t, Verifier, resolver.GetUserRole(context.Background(), "u-4"))
	require.Empty(t, resolver.Roles(context.Background(), "u-4"))
}
