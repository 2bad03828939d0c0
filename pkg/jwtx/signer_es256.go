package jwtx

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// ES256Signer implements the Signer interface using ECDSA P-256 with SHA-256.
type ES256Signer struct {
	kid string
	key *ecdsa.PrivateKey
	pub *ecdsa.PublicKey
	alg string
}

// newES256Signer loads an ECDSA private key from PEM bytes.
func newES256Signer(kid string, pemKey []byte) (*ES256Signer, error) {
	key, err := cryptox.ParseES256PrivateKey(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}
	return newES256SignerFromKey(kid, key)
}

func newES256SignerFromKey(kid string, key *ecdsa.PrivateKey) (*ES256Signer, error) {
	if key == nil {
		return nil, errors.New("jwtx: nil ECDSA key")
	}

	if kid == "" {
		derived, err := cryptox.KeyID(&key.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("jwtx: derive kid: %w", err)
		}
		kid = derived
	}

	s := &ES256Signer{
		kid: kid,
		key: key,
		pub: &key.PublicKey,
		alg: jwt.SigningMethodES256.Alg(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ES256Signer) Alg() string              { return s.alg }
func (s *ES256Signer) KID() string              { return s.kid }
func (s *ES256Signer) Public() *ecdsa.PublicKey { return s.pub }

// Sign takes your claims and turns them into a signed JWT string.
func (s *ES256Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicJWK returns a JWK for inclusion in a JWKS. This is what you'll
// publish so others can verify your tokens.
func (s *ES256Signer) PublicJWK() JWK {
	return NewES256JWK(s.kid, "sig", s.alg, s.pub)
}

// Validate does a quick sanity check to make sure we actually have keys.
func (s *ES256Signer) Validate() error {
	if s.key == nil || s.pub == nil {
		return errors.New("jwtx: nil ECDSA key")
	}
	if s.key.Curve == nil || s.key.Curve.Params().Name != "P-256" {
		return errors.New("jwtx: expected P-256 curve")
	}
	return nil
}
