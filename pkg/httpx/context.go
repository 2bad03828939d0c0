package httpx

import "context"

type ctxKey string

const (
	CtxKeyClaims ctxKey = "claims"
	CtxKeyToken  ctxKey = "token"
)

// ContextWithClaims stores validated token claims for downstream handlers.
func ContextWithClaims[C any](ctx context.Context, claims C) context.Context {
	return context.WithValue(ctx, CtxKeyClaims, claims)
}

// ClaimsFromContext returns the claims stored by AuthnMiddleware.
func ClaimsFromContext[C any](ctx context.Context) (C, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(C)
	return c, ok
}

// BearerFromContext returns the raw bearer token of the request.
func BearerFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeyToken).(string)
	return s
}
