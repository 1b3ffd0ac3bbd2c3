package logger

import (
	"context"
	"log/slog"
)

type ctxKeyType struct{}

var ctxKey ctxKeyType

// With returns a context whose logger carries the extra fields. Fields
// accumulate across nested calls, so middleware can layer trace ids and
// handlers can layer entity ids on top.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, ctxKey, From(ctx).With(fields...))
}

// From returns the request-scoped logger, falling back to the process logger
// when the context carries none.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey).(*slog.Logger); ok {
		return l
	}
	return L()
}
