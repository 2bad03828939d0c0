package credential_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/credential"
	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func totpOpts() totp.ValidateOpts {
	return totp.ValidateOpts{Period: 30, Skew: 1, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1}
}

func newTestVerifier(t *testing.T, c *clock) *credential.Verifier {
	t.Helper()
	hasher, err := cryptox.NewPasswordHasher(cryptox.AlgorithmArgon2id, cryptox.WithArgon2Params(cryptox.Argon2Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	}))
	require.NoError(t, err)
	return credential.NewVerifier(hasher, credential.WithClock(c.Now), credential.WithTOTPIssuer("Passport Test"))
}

func TestNewCredential(t *testing.T) {
	c := newClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, c)

	cred, err := v.NewCredential("user-1", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "user-1", cred.UserID)
	require.NotContains(t, cred.PasswordHash, "correct-horse")
	require.Equal(t, domain.MFANone, cred.MFA)
	require.Empty(t, cred.MFASecret)
	require.Equal(t, 0, cred.History.Len())
	require.Equal(t, c.Now(), cred.CreatedAt)
	require.NoError(t, cred.Validate())

	_, err = v.NewCredential("", "pw")
	require.ErrorIs(t, err, credential.ErrEmptyUserID)
}

func TestPasswordScenario(t *testing.T) {
	c := newClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, c)

	cred, err := v.NewCredential("user-1", "correct-horse")
	require.NoError(t, err)

	res, err := v.VerifyPassword(cred, "correct-horse")
	require.NoError(t, err)
	require.Equal(t, credential.PasswordSuccess, res.Outcome)
	require.True(t, res.OK())

	c.Advance(48 * time.Hour)
	rotatedAt := c.Now()
	cred, err = v.ChangePassword(cred, "battery-staple")
	require.NoError(t, err)

	res, err = v.VerifyPassword(cred, "correct-horse")
	require.NoError(t, err)
	require.Equal(t, credential.PasswordFailedPrevious, res.Outcome)
	require.False(t, res.OK())
	require.Equal(t, rotatedAt, res.ChangedAt)

	res, err = v.VerifyPassword(cred, "battery-staple")
	require.NoError(t, err)
	require.Equal(t, credential.PasswordSuccess, res.Outcome)

	res, err = v.VerifyPassword(cred, "wrong")
	require.NoError(t, err)
	require.Equal(t, credential.PasswordFailed, res.Outcome)
	require.True(t, res.ChangedAt.IsZero())
}

func TestChangePasswordDoesNotMutateInput(t *testing.T) {
	c := newClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, c)

	orig, err := v.NewCredential("user-1", "one")
	require.NoError(t, err)
	next, err := v.ChangePassword(orig, "two")
	require.NoError(t, err)

	require.Equal(t, 0, orig.History.Len())
	require.Equal(t, 1, next.History.Len())
	require.NotEqual(t, orig.PasswordHash, next.PasswordHash)

	newest, ok := next.History.Newest()
	require.True(t, ok)
	require.Equal(t, orig.PasswordHash, newest.Hash)
}

func TestHistoryLengthIsMinRotationsTen(t *testing.T) {
	c := newClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, c)

	cred, err := v.NewCredential("user-1", "pw-0")
	require.NoError(t, err)

	for rotations := 1; rotations <= 14; rotations++ {
		c.Advance(time.Hour)
		cred, err = v.ChangePassword(cred, "pw-"+string(rune('a'+rotations)))
		require.NoError(t, err)
		require.Equal(t, min(rotations, domain.PasswordHistoryCap), cred.History.Len())
	}

	// pw-0 has been evicted, the password retired last rotation has not.
	res, err := v.VerifyPassword(cred, "pw-0")
	require.NoError(t, err)
	require.Equal(t, credential.PasswordFailed, res.Outcome)

	res, err = v.VerifyPassword(cred, "pw-"+string(rune('a'+13)))
	require.NoError(t, err)
	require.Equal(t, credential.PasswordFailedPrevious, res.Outcome)
}

func TestVerifyPasswordCorruptHashIsFault(t *testing.T) {
	c := newClock(time.Now())
	v := newTestVerifier(t, c)

	cred := domain.Credential{UserID: "user-1", PasswordHash: "plaintext-oops"}
	_, err := v.VerifyPassword(cred, "anything")
	require.ErrorIs(t, err, cryptox.ErrInvalidHash)

	good, err := v.NewCredential("user-2", "pw")
	require.NoError(t, err)
	good.History.Push(domain.PasswordHistoryEntry{Hash: "$argon2id$broken", ChangedAt: c.Now()})
	_, err = v.VerifyPassword(good, "other")
	require.ErrorIs(t, err, cryptox.ErrInvalidHash)
}

func TestVerifyPasswordLegacyBcrypt(t *testing.T) {
	legacy, err := cryptox.NewPasswordHasher(cryptox.AlgorithmBcrypt, cryptox.WithBcryptCost(4))
	require.NoError(t, err)
	hash, err := legacy.Hash("correct-horse")
	require.NoError(t, err)

	v := newTestVerifier(t, newClock(time.Now()))
	res, err := v.VerifyPassword(domain.Credential{UserID: "u", PasswordHash: hash}, "correct-horse")
	require.NoError(t, err)
	require.Equal(t, credential.PasswordSuccess, res.Outcome)
}

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error) { return "", errors.New("entropy exhausted") }
func (failingHasher) Verify(string, string) error { return cryptox.ErrPasswordMismatch }

func TestChangePasswordHashFailureKeepsCredential(t *testing.T) {
	v := credential.NewVerifier(failingHasher{})
	cred := domain.Credential{UserID: "u", PasswordHash: "h"}

	out, err := v.ChangePassword(cred, "new")
	require.Error(t, err)
	require.Equal(t, cred, out)
}

func TestEnrollMFA(t *testing.T) {
	c := newClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, c)
	cred, err := v.NewCredential("user-1", "pw")
	require.NoError(t, err)

	t.Run("none is rejected", func(t *testing.T) {
		out, _, err := v.EnrollMFA(cred, domain.MFANone)
		require.ErrorIs(t, err, credential.ErrMFAKindNone)
		require.Equal(t, cred, out)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		_, _, err := v.EnrollMFA(cred, domain.MFAKind("webauthn"))
		require.ErrorIs(t, err, credential.ErrUnsupportedMFAKind)
	})

	t.Run("totp", func(t *testing.T) {
		out, enr, err := v.EnrollMFA(cred, domain.MFATOTP, credential.WithAccountName("alice"))
		require.NoError(t, err)
		require.Equal(t, domain.MFATOTP, out.MFA)
		require.Equal(t, enr.Secret, out.MFASecret)
		require.NotEmpty(t, enr.Secret)
		require.Contains(t, enr.URL, "otpauth://totp/")
		require.Contains(t, enr.URL, "alice")
		require.Equal(t, "alice", enr.Account)
		require.NoError(t, out.Validate())

		// Input untouched.
		require.Equal(t, domain.MFANone, cred.MFA)

		png, err := enr.QRCodePNG(128, 128)
		require.NoError(t, err)
		require.Equal(t, []byte("\x89PNG"), png[:4])
	})

	t.Run("secrets are unique", func(t *testing.T) {
		_, a, err := v.EnrollMFA(cred, domain.MFATOTP)
		require.NoError(t, err)
		_, b, err := v.EnrollMFA(cred, domain.MFATOTP)
		require.NoError(t, err)
		require.NotEqual(t, a.Secret, b.Secret)
	})
}

func TestCheckMFAScenario(t *testing.T) {
	c := newClock(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC))
	v := newTestVerifier(t, c)
	cred, err := v.NewCredential("user-1", "pw")
	require.NoError(t, err)
	cred, enr, err := v.EnrollMFA(cred, domain.MFATOTP)
	require.NoError(t, err)

	T := c.Now()
	code, err := totp.GenerateCodeCustom(enr.Secret, T, totpOpts())
	require.NoError(t, err)

	res, err := v.CheckMFA(cred, code, T)
	require.NoError(t, err)
	require.Equal(t, credential.MFASuccess, res)

	res, err = v.CheckMFA(cred, code, T.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, credential.MFAFailed, res)
}

func TestCheckMFASkewWindow(t *testing.T) {
	c := newClock(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC))
	v := newTestVerifier(t, c)
	cred, err := v.NewCredential("user-1", "pw")
	require.NoError(t, err)
	cred, enr, err := v.EnrollMFA(cred, domain.MFATOTP)
	require.NoError(t, err)

	T := c.Now()
	code, err := totp.GenerateCodeCustom(enr.Secret, T, totpOpts())
	require.NoError(t, err)

	for _, d := range []time.Duration{-30 * time.Second, 30 * time.Second} {
		res, err := v.CheckMFA(cred, code, T.Add(d))
		require.NoError(t, err)
		require.Equal(t, credential.MFASuccess, res, "offset %s", d)
	}
	for _, d := range []time.Duration{-90 * time.Second, 90 * time.Second} {
		res, err := v.CheckMFA(cred, code, T.Add(d))
		require.NoError(t, err)
		require.Equal(t, credential.MFAFailed, res, "offset %s", d)
	}
}

func TestCheckMFAEdgeCases(t *testing.T) {
	v := newTestVerifier(t, newClock(time.Now()))
	now := time.Now()

	t.Run("not configured regardless of code", func(t *testing.T) {
		cred := domain.Credential{UserID: "u", PasswordHash: "h", MFA: domain.MFANone}
		for _, code := range []string{"", "000000", "123456", "garbage"} {
			res, err := v.CheckMFA(cred, code, now)
			require.NoError(t, err)
			require.Equal(t, credential.MFANotConfigured, res)
		}
	})

	t.Run("missing secret is a fault", func(t *testing.T) {
		cred := domain.Credential{UserID: "u", PasswordHash: "h", MFA: domain.MFATOTP}
		_, err := v.CheckMFA(cred, "123456", now)
		require.ErrorIs(t, err, credential.ErrMissingMFASecret)
	})

	t.Run("unsupported kind", func(t *testing.T) {
		cred := domain.Credential{UserID: "u", MFA: "sms", MFASecret: "x"}
		_, err := v.CheckMFA(cred, "123456", now)
		require.ErrorIs(t, err, credential.ErrUnsupportedMFAKind)
	})

	t.Run("wrong length code fails", func(t *testing.T) {
		cred := domain.Credential{UserID: "u", MFA: domain.MFATOTP, MFASecret: "JBSWY3DPEHPK3PXP"}
		for _, code := range []string{"", "12345", "1234567"} {
			res, err := v.CheckMFA(cred, code, now)
			require.NoError(t, err)
			require.Equal(t, credential.MFAFailed, res)
		}
	})
}

func TestRemoveMFA(t *testing.T) {
	v := newTestVerifier(t, newClock(time.Now()))
	cred := domain.Credential{UserID: "u", PasswordHash: "h", MFA: domain.MFATOTP, MFASecret: "JBSWY3DPEHPK3PXP"}

	out := v.RemoveMFA(cred)
	require.Equal(t, domain.MFANone, out.MFA)
	require.Empty(t, out.MFASecret)
	require.NoError(t, out.Validate())

	res, err := v.CheckMFA(out, "123456", time.Now())
	require.NoError(t, err)
	require.Equal(t, credential.MFANotConfigured, res)

	// Removing twice is harmless.
	require.Equal(t, domain.MFANone, v.RemoveMFA(out).MFA)
}

func TestResultStrings(t *testing.T) {
	require.Equal(t, "success", credential.PasswordSuccess.String())
	require.Equal(t, "failed_previous", credential.PasswordFailedPrevious.String())
	require.Equal(t, "failed", credential.PasswordFailed.String())
	require.Equal(t, "not_configured", credential.MFANotConfigured.String())
	require.Equal(t, "failed", credential.MFAFailed.String())
}
