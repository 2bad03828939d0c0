package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/passport/pkg/jwtx"
)

// Validator recovers claims from presented tokens using public keys only.
// It keeps no server-side state.
type Validator struct {
	verifier *jwtx.ES256Verifier
}

func NewValidator(keys *Keys, opts ...Option) *Validator {
	cfg := newConfig(opts)
	return &Validator{
		verifier: jwtx.NewVerifierES256(
			keys.PublicKeys(),
			jwtx.WithIssuer(cfg.issuer),
			jwtx.WithClock(cfg.now),
		),
	}
}

// Validate checks the signature and the nbf <= now < exp window of raw
// and returns its claims. Errors wrap exactly one of ErrMissing,
// ErrMalformed, ErrBadSignature or ErrExpiredOrNotYetValid.
func (v *Validator) Validate(raw string) (SessionClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SessionClaims{}, ErrMissing
	}

	var claims SessionClaims
	if err := v.verifier.Verify(raw, &claims); err != nil {
		return SessionClaims{}, classify(err)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwtx.ErrExpired), errors.Is(err, jwtx.ErrNotYetValid):
		return fmt.Errorf("%w: %v", ErrExpiredOrNotYetValid, err)
	case errors.Is(err, jwtx.ErrInvalidSig),
		errors.Is(err, jwtx.ErrUnknownKID),
		errors.Is(err, jwtx.ErrAlgMismatch),
		errors.Is(err, jwtx.ErrIssuer):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
