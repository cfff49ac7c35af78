package middleware

import (
	"context"

	"github.com/bozorchi/shop-backend/internal/actors"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the authenticated actor, or nil when the
// request was not authenticated.
func ActorFromContext(ctx context.Context) *actors.Actor {
	if ctx == nil {
		return nil
	}
	if a, ok := ctx.Value(ctxActor).(*actors.Actor); ok {
		return a
	}
	return nil
}

// WithActor injects the resolved actor into the context.
func WithActor(ctx context.Context, actor *actors.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
