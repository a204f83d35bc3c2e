package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// UserIDFromContext returns the signed-in user id carried by the session, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return "", false
	}
	return sess.User(), true
}

// AccessTokenSessionKey stores the backend bearer token issued at sign-in.
const AccessTokenSessionKey = "access_token"

// AccessTokenFromContext returns the bearer token of the signed-in user, if any.
func AccessTokenFromContext(ctx context.Context) string {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return ""
	}
	return sess.Get(AccessTokenSessionKey)
}
