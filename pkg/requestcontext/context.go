// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets values; services read them. Keeping this package free of
// net/http lets services consume caller identity and request time without
// pulling in transport code, and lets tests inject both directly:
//
//	ctx = requestcontext.WithCaller(ctx, addr)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"agentmemory/pkg/domain"
)

type (
	callerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyCaller      = callerKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Caller retrieves the verified caller address from the context.
// Returns the zero address if not set.
func Caller(ctx context.Context) domain.Address {
	if addr, ok := ctx.Value(ContextKeyCaller).(domain.Address); ok {
		return addr
	}
	return domain.Address{}
}

// WithCaller injects a caller address into the context.
func WithCaller(ctx context.Context, addr domain.Address) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, addr)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Every read and write
// within one request observes the same instant. Falls back to time.Now()
// for non-HTTP contexts (workers, tests that don't inject).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request-time
// middleware and by tests that need deterministic timestamps.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
