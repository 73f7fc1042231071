package httpx

import (
	"context"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
)

type sessionCtxKey struct{}

// withSession records the authenticated session on the request context for logging.
func withSession(ctx context.Context, sess *domainauth.Session) context.Context {
	if sess == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionCtxKey{}, sess)
}

// sessionFrom returns the session stored by withSession. Authorization never
// reads it; guards pass the session to handlers explicitly.
func sessionFrom(ctx context.Context) (*domainauth.Session, bool) {
	sess, ok := ctx.Value(sessionCtxKey{}).(*domainauth.Session)
	return sess, ok && sess != nil
}
