package utils

import "context" // Request-scoped values

type requestIDKey struct{}

// WithRequestID stores the request id so service and leg logs can carry it
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestIDFrom returns the request id stored by WithRequestID, if any
func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}
