package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duriyam/operate/internal/shared"
)

func newGuardedRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	if userID == "" {
		return req
	}
	sess := &shared.Session{ID: "s-1"}
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestMiddlewareRequireRole(t *testing.T) {
	store := NewMemoryStore(DefaultCatalog)
	_, err := store.AssignRole(context.Background(), "admin-1", Admin, "seed")
	require.NoError(t, err)
	mw := Middleware{Resolver: NewResolver(store, discardLogger(), nil), Logger: discardLogger()}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := mw.RequireRole(Admin)(ok)

	cases := map[string]int{
		"admin-1": http.StatusNoContent,
		"u-2":     http.StatusForbidden,
		"":        http.StatusUnauthorized,
	}
	for user, want := range cases {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, newGuardedRequest(user))
		require.Equalf(t, want, rr.Code, "user %q", user)
	}
}

func TestMiddlewareRequirePermission(t *testing.T) {
	store := NewMemoryStore(DefaultCatalog)
	_, err := store.AssignRole(context.Background(), "creator-1", Creator, "seed")
	require.NoError(t, err)
	mw := Middleware{Evaluator: NewEvaluator(store, nil, discardLogger(), nil), Logger: discardLogger()}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := mw.RequirePermission(Check{Permission: PermViewInventory, Resource: Resource(ResourceInventory)})(ok)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newGuardedRequest("creator-1"))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, newGuardedRequest("u-5"))
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}
