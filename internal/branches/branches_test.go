package branches

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/duriyam/operate/internal/shared"
	_ "github.com/duriyam/operate/testing"
)

type staticRepo map[string][]Branch

func (r staticRepo) ListForUser(_ context.Context, userID string) ([]Branch, error) {
	return r[userID], nil
}

func strPtr(s string) *string { return &s }

func newPrefs(t *testing.T) (*RedisPreferences, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisPreferences(client), mr
}

func TestResolvePrefersPrimaryWithoutStoredSelection(t *testing.T) {
	list := []Branch{{ID: "a", IsPrimary: false}, {ID: "b", IsPrimary: true}}
	got := Resolve(nil, list)
	require.NotNil(t, got)
	require.Equal(t, "b", got.ID)
}

func TestResolveFallbackChain(t *testing.T) {
	list := []Branch{{ID: "a"}, {ID: "b", IsPrimary: true}, {ID: "c"}}

	require.Equal(t, "c", Resolve(strPtr("c"), list).ID)
	require.Equal(t, "b", Resolve(strPtr("gone"), list).ID)
	require.Equal(t, "b", Resolve(strPtr(""), list).ID)
	require.Equal(t, "a", Resolve(nil, []Branch{{ID: "a"}, {ID: "c"}}).ID)
	require.Nil(t, Resolve(strPtr("a"), nil))
}

func TestPreferenceKeysAreNamespacedPerUser(t *testing.T) {
	prefs, mr := newPrefs(t)
	ctx := context.Background()
	require.NoError(t, prefs.Save(ctx, "u-1", "a"))
	require.NoError(t, prefs.Save(ctx, "u-2", "b"))

	require.Equal(t, "branch:selected:u-1", PreferenceKey("u-1"))
	v, err := mr.Get("branch:selected:u-1")
	require.NoError(t, err)
	require.Equal(t, "a", v)

	got, err := prefs.Selected(ctx, "u-2")
	require.NoError(t, err)
	require.Equal(t, "b", *got)

	got, err = prefs.Selected(ctx, "u-3")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestServiceSelectAndRefresh(t *testing.T) {
	prefs, _ := newPrefs(t)
	repo := staticRepo{"u-1": {{ID: "a"}, {ID: "b", IsPrimary: true}, {ID: "c"}}}
	svc := NewService(repo, prefs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	sel, err := svc.Current(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "b", sel.Current.ID)

	_, err = svc.Select(ctx, "u-1", "zzz")
	require.True(t, errors.Is(err, shared.ErrNotFound))

	sel, err = svc.Select(ctx, "u-1", "c")
	require.NoError(t, err)
	require.Equal(t, "c", sel.Current.ID)

	sel, err = svc.Current(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "c", sel.Current.ID)

	// branch c disappears from the list
	repo["u-1"] = []Branch{{ID: "a"}, {ID: "b", IsPrimary: true}}
	sel, err = svc.Refresh(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "b", sel.Current.ID)

	stored, err := prefs.Selected(ctx, "u-1")
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestServiceWithoutBranches(t *testing.T) {
	prefs, _ := newPrefs(t)
	svc := NewService(staticRepo{}, prefs, nil)
	sel, err := svc.Current(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, sel.Current)
	require.Empty(t, sel.Branches)
}

func TestHandlerSelectsBranch(t *testing.T) {
	prefs, _ := newPrefs(t)
	repo := staticRepo{"u-1": {{ID: "a", IsPrimary: true}, {ID: "b"}}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Route("/api/branches", NewHandler(logger, NewService(repo, prefs, logger)).MountRoutes)

	do := func(method, path string, body []byte, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		if user != "" {
			sess := &shared.Session{ID: "s"}
			sess.SetUser(user)
			req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/branches/current", nil, "").Code)

	rr := do(http.MethodPut, "/api/branches/current", []byte(`{"branch_id":"b"}`), "u-1")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(http.MethodGet, "/api/branches/current", nil, "u-1")
	require.Equal(t, http.StatusOK, rr.Code)
	var sel Selection
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sel))
	require.Equal(t, "b", sel.Current.ID)
	require.Len(t, sel.Branches, 2)

	require.Equal(t, http.StatusNotFound, do(http.MethodPut, "/api/branches/current", []byte(`{"branch_id":"x"}`), "u-1").Code)
	require.Equal(t, http.StatusBadRequest, do(http.MethodPut, "/api/branches/current", []byte(`{}`), "u-1").Code)
}
