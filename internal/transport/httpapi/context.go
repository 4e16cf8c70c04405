package httpapi

import (
	"context"

	"github.com/ericlarwa/gridline/internal/auth"
)

type sessionKey struct{}

func withSession(ctx context.Context, session *auth.Context) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func sessionFrom(ctx context.Context) *auth.Context {
	s, _ := ctx.Value(sessionKey{}).(*auth.Context)
	return s
}
