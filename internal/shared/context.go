package shared

import "context"

type ctxKeySession struct{}

// ContextWithSession returns a context carrying the request session.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, sess)
}

// SessionFromContext returns the session stored by the middleware, or nil
// when the request never passed through it.
func SessionFromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(ctxKeySession{}).(*Session); ok {
		return sess
	}
	return nil
}
