package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type contextKey string

// actorKey holds the actor entity id set by the middleware.
const actorKey contextKey = "actor_id"

// WithActorID returns a context carrying the actor entity id.
func WithActorID(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey, actorID)
}

// ActorIDFromContext returns the actor entity id set by the middleware.
func ActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey).(uuid.UUID)
	return id, ok
}

// RequireActorID returns the actor entity id or an error when the request
// was not authenticated.
func RequireActorID(ctx context.Context) (uuid.UUID, error) {
	id, ok := ActorIDFromContext(ctx)
	if !ok || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("no actor in request context")
	}
	return id, nil
}
