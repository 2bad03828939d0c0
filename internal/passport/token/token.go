// Package token mints and validates ES256 session tokens that carry a
// user's claims and the authentication strength achieved at login.
package token

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultLoginTTL is how long a fully authenticated session lasts.
const DefaultLoginTTL = 180 * time.Minute

var (
	ErrMissing              = errors.New("token: missing")
	ErrMalformed            = errors.New("token: malformed")
	ErrBadSignature         = errors.New("token: bad signature")
	ErrExpiredOrNotYetValid = errors.New("token: expired or not yet valid")

	ErrSigningFailure  = errors.New("token: signing failure")
	ErrInvalidTTL      = errors.New("token: ttl must be positive")
	ErrInvalidArgument = errors.New("token: invalid argument")
)

// SessionClaims is the signed payload.
type SessionClaims struct {
	jwt.RegisteredClaims

	User     domain.Claims   `json:"user"`
	AuthType domain.AuthType `json:"auth_type"`
}

// Validate is called by the JWT parser after the registered claims pass.
func (c SessionClaims) Validate() error {
	switch {
	case c.Subject == "":
		return errors.New("missing sub")
	case c.ID == "":
		return errors.New("missing jti")
	case !c.AuthType.Valid():
		return errors.New("unknown auth_type")
	}
	return nil
}

// Token is a freshly minted token: the compact JWS plus the claims it
// carries, for the convenience of the caller that just issued it.
type Token struct {
	Raw       string
	ID        string
	Subject   string
	Claims    SessionClaims
	ExpiresAt time.Time
}

// Option configures an Issuer or Validator.
type Option func(*config)

type config struct {
	issuer string
	now    func() time.Time
}

// WithIssuerName sets the iss claim, and requires it when validating.
func WithIssuerName(name string) Option {
	return func(c *config) { c.issuer = name }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

func newConfig(opts []Option) config {
	c := config{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
