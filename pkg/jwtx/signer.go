package jwtx

import (
	"crypto/ecdsa"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(jwt.Claims) (string, error)
	Public() *ecdsa.PublicKey
	PublicJWK() JWK
	Validate() error
}

// NewSignerES256 creates an ES256 signer from PEM bytes.
// ECDSA P-256 keys must be in PKCS8 format. An empty kid is derived from
// the public key so restarts with the same key keep the same kid.
func NewSignerES256(kid string, pemKey []byte) (Signer, error) {
	return newES256Signer(kid, pemKey)
}
