package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/internal/passport/metrics"
	"github.com/aussiebroadwan/passport/internal/passport/token"
	"github.com/aussiebroadwan/passport/pkg/httpx"
)

// RequireAuthType admits only tokens minted with the given strength.
func RequireAuthType(want domain.AuthType) httpx.Middleware {
	return httpx.RequireClaims(func(c token.SessionClaims) bool {
		return c.AuthType == want
	}, "token auth_type must be "+string(want))
}

// RequireUserType admits only users of the given type.
func RequireUserType(want domain.UserType) httpx.Middleware {
	return httpx.RequireClaims(func(c token.SessionClaims) bool {
		return c.User.Type == want
	}, "requires user_type "+string(want))
}

// RequireUserTypeNot turns away users of the given type.
func RequireUserTypeNot(deny domain.UserType) httpx.Middleware {
	return httpx.RequireClaims(func(c token.SessionClaims) bool {
		return c.User.Type != deny
	}, "not available to user_type "+string(deny))
}

func claimsFrom(r *http.Request) (token.SessionClaims, bool) {
	return httpx.ClaimsFromContext[token.SessionClaims](r.Context())
}

// meteredValidator counts validation outcomes.
type meteredValidator struct {
	v *token.Validator
	m *metrics.Metrics
}

func (mv meteredValidator) Validate(raw string) (token.SessionClaims, error) {
	claims, err := mv.v.Validate(raw)
	mv.m.TokenValidation(validationResult(err))
	return claims, err
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, token.ErrExpiredOrNotYetValid):
		return "expired"
	case errors.Is(err, token.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, token.ErrMissing):
		return "missing"
	default:
		return "malformed"
	}
}
