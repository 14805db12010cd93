// Package requestctx carries authenticated request identity through
// context. The auth middleware writes the values; services and handlers
// read them without knowing how the caller was verified.
package requestctx

import "context"

// Operator is the privileged role allowed to cancel stale battles. Every
// other token carries the player role.
const (
	RolePlayer   = "player"
	RoleOperator = "operator"
)

type playerIDContextKey struct{}

type roleContextKey struct{}

// WithPlayerID stores the verified player identifier in context.
func WithPlayerID(ctx context.Context, playerID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, playerIDContextKey{}, playerID)
}

// PlayerIDFromContext returns the player identifier stored in context, or
// the empty string when the request is unauthenticated.
func PlayerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(playerIDContextKey{}).(string)
	return value
}

// WithRole stores the caller's role in context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, roleContextKey{}, role)
}

// RoleFromContext returns the caller's role, defaulting to RolePlayer for
// authenticated requests that predate roles.
func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return RolePlayer
	}
	value, _ := ctx.Value(roleContextKey{}).(string)
	if value == "" {
		return RolePlayer
	}
	return value
}
