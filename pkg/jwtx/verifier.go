package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and decodes its claims into dst if it's legit.
type Verifier interface {
	Verify(token string, dst jwt.Claims) error
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// VerifyOption tunes an ES256Verifier.
type VerifyOption func(*ES256Verifier)

// WithIssuer requires the token's iss to match. Empty means "don't care".
func WithIssuer(issuer string) VerifyOption {
	return func(v *ES256Verifier) { v.issuer = issuer }
}

// WithLeeway allows small clock skew when validating exp/nbf.
func WithLeeway(d time.Duration) VerifyOption {
	return func(v *ES256Verifier) { v.leeway = d }
}

// WithClock overrides the time source used for exp/nbf checks.
func WithClock(now func() time.Time) VerifyOption {
	return func(v *ES256Verifier) { v.now = now }
}
