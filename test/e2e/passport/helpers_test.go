package passport_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/app"
	"github.com/aussiebroadwan/passport/internal/passport/credential"
	"github.com/aussiebroadwan/passport/pkg/authsdk"
	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

/*
 * Common constants and helpers for passport end-to-end tests. Each test
 * runs the fully wired service in-process behind httptest and talks to it
 * through the authsdk client only.
 */

const (
	adminUsername = "admin"
	adminPassword = "Admin123!"
)

// testConfig returns a config with a fast hasher and a private data dir.
func testConfig(t *testing.T) app.Config {
	t.Helper()
	dir := t.TempDir()
	return app.Config{
		Issuer:              "passport-e2e",
		Env:                 "test",
		Port:                8080,
		ShutdownGracePeriod: time.Second,
		DatabaseDriver:      app.DriverSQLite,
		DatabaseDSN:         filepath.Join(dir, "passport.db"),
		PasswordAlgorithm:   cryptox.AlgorithmArgon2id,
		Argon2Memory:        1024,
		Argon2Iterations:    1,
		Argon2Parallelism:   1,
		BcryptCost:          cryptox.DefaultBcryptCost,
		PepperFile:          filepath.Join(dir, "pepper"),
		SessionTTL:          time.Hour,
		ChallengeTTL:        time.Minute,
		AdminUsername:       adminUsername,
		AdminPassword:       adminPassword,
	}
}

// startPassport wires the service from cfg and serves it on a local port.
// The returned stop func shuts the service down; it is also registered
// as a test cleanup and safe to call twice.
func startPassport(t *testing.T, cfg app.Config) (*authsdk.Client, func()) {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	application, err := app.New(context.Background(), cfg, app.WithLogger(logger))
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		srv.Close()
		if err := application.Shutdown(); err != nil {
			t.Logf("failed to shut down passport: %v", err)
		}
	}
	t.Cleanup(stop)

	return authsdk.NewClient(srv.URL), stop
}

// adminSession logs in as the seeded admin.
func adminSession(t *testing.T, client *authsdk.Client) *authsdk.Session {
	t.Helper()
	session, err := client.LoginPassword(t.Context(), adminUsername, adminPassword)
	require.NoError(t, err)
	require.False(t, session.NeedsMFA())
	return session
}

// createUser creates a regular user through the admin API.
func createUser(t *testing.T, client *authsdk.Client, username, password string) *authsdk.UserResponse {
	t.Helper()
	user, err := adminSession(t, client).CreateUser(t.Context(), authsdk.CreateUserRequest{
		Username:    username,
		Password:    password,
		DisplayName: username,
		Groups:      []string{"e2e"},
	})
	require.NoError(t, err)
	return user
}

// totpNow returns the current code for secret.
func totpNow(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, time.Now(), totp.ValidateOpts{
		Period:    credential.TOTPPeriod,
		Skew:      credential.TOTPSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
