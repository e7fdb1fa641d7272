// Package tenant carries the organization and acting user of a request.
// The upstream gateway authenticates; this service trusts its headers.
package tenant

import (
	"context"
	"errors"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const (
	organizationIDKey contextKey = "organization_id"
	actorIDKey        contextKey = "actor_id"
)

// SystemActor is recorded as the actor of scheduler and webhook driven runs
const SystemActor = "system"

var (
	// ErrNoOrganizationInContext is returned when organization context is missing
	ErrNoOrganizationInContext = errors.New("no organization in context")
)

// WithOrganizationID adds the organization id to context
func WithOrganizationID(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, organizationIDKey, organizationID)
}

// WithActorID adds the acting user id to context
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// OrganizationID extracts the organization id from context
func OrganizationID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(organizationIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoOrganizationInContext
	}
	return id, nil
}

// ActorID returns the acting user, or SystemActor when none is set
func ActorID(ctx context.Context) string {
	id, ok := ctx.Value(actorIDKey).(string)
	if !ok || id == "" {
		return SystemActor
	}
	return id
}
