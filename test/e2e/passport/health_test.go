package passport_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHealthEndpoints verifies liveness and readiness on a fresh service.
func TestHealthEndpoints(t *testing.T) {
	client, _ := startPassport(t, testConfig(t))

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)

	health, err = client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Signer)

	t.Logf("Readyz reports version %s, uptime %s", health.Version, health.Uptime)
}

// TestJWKSEndpoint verifies the signing key is published.
func TestJWKSEndpoint(t *testing.T) {
	client, _ := startPassport(t, testConfig(t))

	jwks, err := client.GetJWKS(t.Context())
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "ES256", jwks.Keys[0].Alg)
	require.NotEmpty(t, jwks.Keys[0].Kid)

	t.Logf("JWKS key id: %s", jwks.Keys[0].Kid)
}
