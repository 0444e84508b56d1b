package app

import (
	"context"

	"farmgate/internal/core"
)

type actorContextKey struct{}

// WithActor stores the authenticated actor on the context. The web adapter
// sets this after token verification.
func WithActor(ctx context.Context, actor core.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFrom retrieves the authenticated actor from the context.
func ActorFrom(ctx context.Context) (core.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(core.Actor)
	return actor, ok
}
