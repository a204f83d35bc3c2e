package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "session-secret", "operate_session", time.Hour, false), mr
}

func TestSessionCommitAndReload(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("user-1")
	sess.Set(AccessTokenSessionKey, "token-1")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	require.True(t, mr.Exists("session:"+sess.ID))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, sm.CookieValue(sess.ID), cookies[0].Value)
	require.NotEqual(t, sess.ID, cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "user-1", loaded.User())
	require.Equal(t, "token-1", loaded.Get(AccessTokenSessionKey))
}

func TestSessionDestroyRemovesKey(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	require.True(t, mr.Exists("session:"+sess.ID))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	require.False(t, mr.Exists("session:"+sess.ID))
	require.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestUnknownCookieStartsFreshSession(t *testing.T) {
	sm, _ := newTestSessions(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "expired"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	require.NotEqual(t, "expired", sess.ID)
	require.Empty(t, sess.User())
}

func TestForgedCookieStartsFreshSession(t *testing.T) {
	sm, _ := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("user-1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	other := NewSessionManager(nil, "another-secret", sm.CookieName(), time.Hour, false)
	for _, value := range []string{sess.ID, sess.ID + ".", other.CookieValue(sess.ID)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: value})
		loaded, err := sm.Load(ctx, req)
		require.NoError(t, err)
		require.NotEqual(t, sess.ID, loaded.ID, value)
		require.Empty(t, loaded.User())
	}
}

func TestCSRFTokenLifecycle(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "s-1"}
	ctx := context.Background()

	require.ErrorIs(t, m.VerifyToken(ctx, sess, "anything"), ErrCSRFTokenMissing)

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, token, again)

	require.NoError(t, m.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, m.VerifyToken(ctx, sess, token+"x"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.VerifyToken(ctx, nil, token), ErrCSRFTokenMissing)
}

func TestRenewDropsPreviousKey(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	oldID := sess.ID

	sm.Renew(sess)
	require.NotEqual(t, oldID, sess.ID)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))

	require.False(t, mr.Exists("session:"+oldID))
	require.True(t, mr.Exists("session:"+sess.ID))
	require.Equal(t, sm.CookieValue(sess.ID), rec.Result().Cookies()[0].Value)
}

func TestCSRFTokenInvalidatedByRenew(t *testing.T) {
	sm, _ := newTestSessions(t)
	m := NewCSRFManager("secret")
	ctx := context.Background()
	sess := &Session{ID: "s-1"}

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)

	sm.Renew(sess)
	require.ErrorIs(t, m.VerifyToken(ctx, sess, token), ErrCSRFTokenMismatch)

	fresh, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEqual(t, token, fresh)
	require.NoError(t, m.VerifyToken(ctx, sess, fresh))

	rotated, err := m.Rotate(ctx, sess)
	require.NoError(t, err)
	require.NotEqual(t, fresh, rotated)
	require.ErrorIs(t, m.VerifyToken(ctx, sess, fresh), ErrCSRFTokenMismatch)
}

func TestUserSafeMessage(t *testing.T) {
	require.Equal(t, "Invalid email or password", UserSafeMessage(ErrInvalidCredentials))
	require.Contains(t, UserSafeMessage(ErrConfiguration), "not configured")
	require.Empty(t, UserSafeMessage(nil))
}
