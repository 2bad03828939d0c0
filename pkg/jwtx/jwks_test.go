package jwtx

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJWK_PEM_ES256(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	jwk := NewES256JWK("test-key-id", "sig", "ES256", &privateKey.PublicKey)

	pemStr, err := jwk.PEM()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))
	require.True(t, strings.HasSuffix(strings.TrimSpace(pemStr), "-----END PUBLIC KEY-----"))

	block, _ := pem.Decode([]byte(pemStr))
	require.NotNil(t, block, "PEM block should be valid")
	require.Equal(t, "PUBLIC KEY", block.Type)

	parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)

	ecdsaPubKey, ok := parsedKey.(*ecdsa.PublicKey)
	require.True(t, ok, "Parsed key should be an ECDSA public key")
	require.True(t, privateKey.PublicKey.Equal(ecdsaPubKey))
}

func TestJWK_FixedWidthCoordinates(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	jwk := NewES256JWK("kid", "sig", "ES256", &privateKey.PublicKey)
	require.Len(t, jwk.X, 43)
	require.Len(t, jwk.Y, 43)
}

func TestJWK_PublicKey_Rejects(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	good := NewES256JWK("kid", "sig", "ES256", &privateKey.PublicKey)

	t.Run("unsupported kty", func(t *testing.T) {
		_, err := JWK{Kty: "RSA", Kid: "k"}.PEM()
		require.ErrorContains(t, err, "unsupported kty")
	})

	t.Run("unsupported curve", func(t *testing.T) {
		j := good
		j.Crv = "P-384"
		_, err := j.PublicKey()
		require.ErrorContains(t, err, "unsupported EC curve")
	})

	t.Run("invalid base64", func(t *testing.T) {
		j := good
		j.X = "!!!invalid-base64!!!"
		_, err := j.PublicKey()
		require.Error(t, err)
	})

	t.Run("point off curve", func(t *testing.T) {
		j := good
		j.X, j.Y = j.Y, j.X
		_, err := j.PublicKey()
		require.Error(t, err)
	})
}

func TestJWKS_JSONShape(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	ks := NewKeySet()
	require.NoError(t, ks.AddPublicKey("k1", &privateKey.PublicKey))

	raw, err := json.Marshal(ks.PublicJWKS())
	require.NoError(t, err)

	var decoded map[string][]map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded["keys"], 1)
	require.Equal(t, "EC", decoded["keys"][0]["kty"])
	require.Equal(t, "ES256", decoded["keys"][0]["alg"])
	require.Equal(t, "k1", decoded["keys"][0]["kid"])
	require.NotContains(t, decoded["keys"][0], "n")
}
