package rbac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/duriyam/operate/internal/shared"
)

func newPermissionsRouter(t *testing.T) http.Handler {
	t.Helper()
	store := NewMemoryStore(DefaultCatalog)
	_, err := store.AssignRole(context.Background(), "admin-1", Admin, "seed")
	require.NoError(t, err)
	mw := Middleware{Resolver: NewResolver(store, discardLogger(), nil), Logger: discardLogger()}
	r := chi.NewRouter()
	r.Route("/api/permissions/catalog", NewPermissionsHandler(discardLogger(), DefaultCatalog, store, mw).MountRoutes)
	return r
}

func getAs(h http.Handler, path, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		sess := &shared.Session{ID: "s"}
		sess.SetUser(userID)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCatalogEndpointIsAdminOnly(t *testing.T) {
	h := newPermissionsRouter(t)
	require.Equal(t, http.StatusUnauthorized, getAs(h, "/api/permissions/catalog/", "").Code)
	require.Equal(t, http.StatusForbidden, getAs(h, "/api/permissions/catalog/", "u-1").Code)

	rr := getAs(h, "/api/permissions/catalog/", "admin-1")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Actions []Action `json:"actions"`
		Modules []Module `json:"modules"`
		Keys    []string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, Actions(), body.Actions)
	require.Len(t, body.Keys, DefaultCatalog.Len())
	require.NotEmpty(t, body.Modules)
}

func TestCatalogRoleEndpoint(t *testing.T) {
	h := newPermissionsRouter(t)

	rr := getAs(h, "/api/permissions/catalog/verifier", "admin-1")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Role    Role          `json:"role"`
		Entries []Entry       `json:"entries"`
		Remote  []RemoteEntry `json:"remote"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, Verifier, body.Role)
	require.Len(t, body.Entries, len(DefaultCatalog.ListEntries(Verifier)))
	require.Len(t, body.Remote, len(body.Entries))

	require.Equal(t, http.StatusBadRequest, getAs(h, "/api/permissions/catalog/superuser", "admin-1").Code)
}
