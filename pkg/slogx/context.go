package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// UserIDKey is the attribute key for the subject an operation acts on.
const UserIDKey = "user_id"

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithUserID scopes the context logger to userID, so every record logged
// through the returned context carries it. An empty userID leaves ctx as is.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return WithContext(ctx, FromContext(ctx).With(slog.String(UserIDKey, userID)))
}
