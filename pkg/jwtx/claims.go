package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NewRegisteredClaims builds the registered part of a token: iat and nbf
// are now, exp is now+ttl and jti is a fresh random UUID.
//
// NumericDate holds whole seconds, so exp is rounded up to the next second.
// A token is then never shorter-lived than ttl, even for sub-second ttls.
func NewRegisteredClaims(issuer, subject string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(ceilSecond(now.Add(ttl))),
		ID:        NewJTI(),
	}
}

func ceilSecond(t time.Time) time.Time {
	if s := t.Truncate(time.Second); !s.Equal(t) {
		return s.Add(time.Second)
	}
	return t
}

// NewJTI returns a random (v4) UUID for the "jti" claim. It exists for
// audit correlation only; nothing looks tokens up by it.
func NewJTI() string {
	return uuid.NewString()
}
