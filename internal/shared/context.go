// Package shared holds the request plumbing every back office handler relies
// on: Redis sessions with flash messages, CSRF tokens, sentinel errors and the
// bounded fetch used by table pages.
package shared

import "context"

// sessionContextKey keys the *Session attached by the session middleware.
type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session attached to ctx, or nil for requests
// that bypassed the session middleware such as /api calls.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
