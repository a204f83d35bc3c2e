package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/duriyam/operate/internal/rbac"
	"github.com/duriyam/operate/internal/shared"
	_ "github.com/duriyam/operate/testing"
)

func newTestRouter(t *testing.T, store *recordingStore) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := rbac.Middleware{Resolver: rbac.NewResolver(store, logger, nil), Logger: logger}
	wf, _, _ := newTestWorkflow(store)
	handler := NewHandler(logger, wf, mw)

	r := chi.NewRouter()
	r.Route("/api/admin", handler.MountRoutes)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess := &shared.Session{ID: "s-" + userID}
	sess.SetUser(userID)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func seededStore(t *testing.T) *recordingStore {
	t.Helper()
	store := newRecordingStore()
	_, err := store.MemoryStore.AssignRole(context.Background(), "root", rbac.Admin, "seed")
	require.NoError(t, err)
	store.AddUser("u-1", "ana@example.com")
	return store
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	router := newTestRouter(t, seededStore(t))
	rr := doJSON(t, router, http.MethodGet, "/api/admin/users", "u-1", "")
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/admin/users", "root", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var panel Panel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &panel))
	require.Equal(t, 1, panel.AdminCount)
	require.Len(t, panel.Users, 2)
}

func TestAssignAdminOverHTTPNeedsBothConfirmations(t *testing.T) {
	store := seededStore(t)
	router := newTestRouter(t, store)

	rr := doJSON(t, router, http.MethodPost, "/api/admin/roles", "root", `{"user_id":"u-1","role":"admin","confirmations":1}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	var problem struct {
		Extra struct {
			Prompt Prompt `json:"prompt"`
		} `json:"extra"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Equal(t, 2, problem.Extra.Prompt.Step)
	require.Equal(t, 1, problem.Extra.Prompt.AdminCount)
	require.Equal(t, AdminWarning, problem.Extra.Prompt.Warning)
	require.Zero(t, store.assignCalls)

	rr = doJSON(t, router, http.MethodPost, "/api/admin/roles", "root", `{"user_id":"u-1","role":"admin","confirmations":2}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, store.assignCalls)
}

func TestRemoveRoleOverHTTP(t *testing.T) {
	store := seededStore(t)
	router := newTestRouter(t, store)

	rr := doJSON(t, router, http.MethodDelete, "/api/admin/roles", "root", `{"user_id":"u-1","role":"creator"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Zero(t, store.removeCalls)

	rr = doJSON(t, router, http.MethodDelete, "/api/admin/roles", "root", `{"user_id":"u-1","role":"creator","confirmations":1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, store.removeCalls)
}

func TestRoleRequestValidation(t *testing.T) {
	router := newTestRouter(t, seededStore(t))
	for _, body := range []string{
		`{"user_id":"","role":"creator","confirmations":1}`,
		`{"user_id":"u-1","role":"owner","confirmations":1}`,
		`{"user_id":"u-1","role":"creator","confirmations":5}`,
		`{"user_id":"u-1","role":"creator","extra":true}`,
	} {
		rr := doJSON(t, router, http.MethodPost, "/api/admin/roles", "root", body)
		require.Equalf(t, http.StatusBadRequest, rr.Code, "body %s", body)
	}
}
