package token

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/pkg/jwtx"
)

// Issuer mints session tokens. It is safe for concurrent use.
type Issuer struct {
	keys *Keys
	cfg  config
}

func NewIssuer(keys *Keys, opts ...Option) *Issuer {
	return &Issuer{keys: keys, cfg: newConfig(opts)}
}

// Issue signs a token for subject valid from now until now+ttl, with exp
// rounded up to a whole second. authType
// must be the strength the caller actually verified; tokens are never
// upgraded after minting.
func (i *Issuer) Issue(subject string, ttl time.Duration, claims domain.Claims, authType domain.AuthType) (Token, error) {
	if ttl <= 0 {
		return Token{}, ErrInvalidTTL
	}
	if subject == "" {
		return Token{}, fmt.Errorf("%w: empty subject", ErrInvalidArgument)
	}
	if !authType.Valid() {
		return Token{}, fmt.Errorf("%w: auth type %q", ErrInvalidArgument, authType)
	}
	if !i.keys.CanSign() {
		return Token{}, fmt.Errorf("%w: no signing key", ErrSigningFailure)
	}

	now := i.cfg.now().UTC()
	sc := SessionClaims{
		RegisteredClaims: jwtx.NewRegisteredClaims(i.cfg.issuer, subject, ttl, now),
		User:             claims,
		AuthType:         authType,
	}

	raw, err := i.keys.signer.Sign(sc)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}

	return Token{
		Raw:       raw,
		ID:        sc.ID,
		Subject:   subject,
		Claims:    sc,
		ExpiresAt: sc.ExpiresAt.Time,
	}, nil
}
