package httpapi

import (
	"context"

	"github.com/StricklySoft/cypher-gateway/internal/authadapter"
)

// contextKey is an unexported type used for context keys in this package,
// preventing collisions with keys from other packages.
type contextKey int

const (
	principalKey contextKey = iota
	requestIDKey
)

func contextWithPrincipal(ctx context.Context, p authadapter.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// principalFromContext retrieves the Principal the auth middleware attached
// to the request. Handlers call this after the middleware chain has run;
// ok is false only if the middleware was bypassed, which is a wiring bug.
func principalFromContext(ctx context.Context) (authadapter.Principal, bool) {
	p, ok := ctx.Value(principalKey).(authadapter.Principal)
	return p, ok
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the per-request correlation ID the
// requestID middleware attached, for use in handler-level logging.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}
