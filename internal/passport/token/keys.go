package token

import (
	"fmt"

	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/aussiebroadwan/passport/pkg/jwtx"
)

// Keys is the immutable key material of one issuer: an optional private
// signing key and the set of public keys accepted for verification.
// Validators only ever see the public set.
type Keys struct {
	signer jwtx.Signer
	public *jwtx.KeySet
}

// LoadKeys builds Keys from a PKCS8 PEM private key. extraPublicPEMs are
// PKIX PEM public keys of retired signing keys whose tokens should still
// validate until they expire.
func LoadKeys(privatePEM []byte, extraPublicPEMs ...[]byte) (*Keys, error) {
	signer, err := jwtx.NewSignerES256("", privatePEM)
	if err != nil {
		return nil, fmt.Errorf("token: signing key: %w", err)
	}

	public := jwtx.NewKeySet()
	if err := public.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("token: signing key: %w", err)
	}
	if err := addPublicPEMs(public, extraPublicPEMs); err != nil {
		return nil, err
	}
	return &Keys{signer: signer, public: public}, nil
}

// LoadVerificationKeys builds Keys that can validate but never issue.
func LoadVerificationKeys(publicPEMs ...[]byte) (*Keys, error) {
	public := jwtx.NewKeySet()
	if err := addPublicPEMs(public, publicPEMs); err != nil {
		return nil, err
	}
	return &Keys{public: public}, nil
}

// GenerateKeys creates an ephemeral key pair. Tokens signed with it die
// with the process; use it for development and tests.
func GenerateKeys() (*Keys, error) {
	pemKey, err := cryptox.GenerateES256Key()
	if err != nil {
		return nil, fmt.Errorf("token: generate key: %w", err)
	}
	return LoadKeys(pemKey)
}

func addPublicPEMs(set *jwtx.KeySet, pems [][]byte) error {
	for i, p := range pems {
		pub, err := cryptox.ParseES256PublicKey(p)
		if err != nil {
			return fmt.Errorf("token: verification key %d: %w", i, err)
		}
		kid, err := cryptox.KeyID(pub)
		if err != nil {
			return fmt.Errorf("token: verification key %d: %w", i, err)
		}
		if err := set.AddPublicKey(kid, pub); err != nil {
			return fmt.Errorf("token: verification key %d: %w", i, err)
		}
	}
	return nil
}

// PublicKeys returns the verification key set, e.g. for JWKS publishing.
func (k *Keys) PublicKeys() *jwtx.KeySet { return k.public }

// KID returns the signing key id, or "" for verification-only Keys.
func (k *Keys) KID() string {
	if k.signer == nil {
		return ""
	}
	return k.signer.KID()
}

// CanSign reports whether Keys holds a private key.
func (k *Keys) CanSign() bool { return k != nil && k.signer != nil }
