package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Cheap parameters so the suite stays fast; production uses DefaultArgon2Params.
var testArgon2 = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestHasher(t *testing.T, algorithm string, opts ...HasherOption) *PasswordHasher {
	t.Helper()
	opts = append([]HasherOption{WithArgon2Params(testArgon2), WithBcryptCost(bcrypt.MinCost)}, opts...)
	h, err := NewPasswordHasher(algorithm, opts...)
	require.NoError(t, err)
	return h
}

func TestNewPasswordHasher(t *testing.T) {
	t.Run("rejects unknown algorithm", func(t *testing.T) {
		_, err := NewPasswordHasher("md5")
		require.Error(t, err)
	})

	t.Run("rejects bcrypt cost out of range", func(t *testing.T) {
		_, err := NewPasswordHasher(AlgorithmBcrypt, WithBcryptCost(99))
		require.Error(t, err)
	})

	t.Run("rejects zero argon2 memory", func(t *testing.T) {
		p := testArgon2
		p.Memory = 0
		_, err := NewPasswordHasher(AlgorithmArgon2id, WithArgon2Params(p))
		require.Error(t, err)
	})

	t.Run("algorithm is case insensitive", func(t *testing.T) {
		h, err := NewPasswordHasher("Argon2ID")
		require.NoError(t, err)
		require.Equal(t, AlgorithmArgon2id, h.Algorithm())
	})
}

func TestHashPassword_Formats(t *testing.T) {
	t.Run("argon2id PHC", func(t *testing.T) {
		hash, err := newTestHasher(t, AlgorithmArgon2id).Hash("password123")
		require.NoError(t, err)

		parts := strings.Split(hash, "$")
		require.Len(t, parts, 6, "PHC hash should have 6 parts")
		require.Equal(t, "argon2id", parts[1])
		require.Equal(t, "v=19", parts[2])
		require.Equal(t, "m=1024,t=1,p=1", parts[3])
		require.NotEmpty(t, parts[4], "salt should not be empty")
		require.NotEmpty(t, parts[5], "hash should not be empty")
	})

	t.Run("bcrypt modular crypt", func(t *testing.T) {
		hash, err := newTestHasher(t, AlgorithmBcrypt).Hash("password123")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(hash, "$2a$"), "got %q", hash)
	})
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	for _, alg := range []string{AlgorithmArgon2id, AlgorithmBcrypt} {
		t.Run(alg, func(t *testing.T) {
			h := newTestHasher(t, alg)

			hash1, err := h.Hash("samepassword")
			require.NoError(t, err)
			hash2, err := h.Hash("samepassword")
			require.NoError(t, err)

			require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
			require.NoError(t, h.Verify("samepassword", hash1))
			require.NoError(t, h.Verify("samepassword", hash2))
		})
	}
}

func TestVerifyPassword(t *testing.T) {
	passwords := []string{
		"password123",
		"P@ssw0rd!#$%^&*()",
		"",
		"пароль🔒密码",
		"   spaces   ",
	}

	for _, alg := range []string{AlgorithmArgon2id, AlgorithmBcrypt} {
		h := newTestHasher(t, alg)
		for _, pw := range passwords {
			hash, err := h.Hash(pw)
			require.NoError(t, err)

			require.NoError(t, h.Verify(pw, hash), "%s should verify %q", alg, pw)
			require.ErrorIs(t, h.Verify(pw+"x", hash), ErrPasswordMismatch)
		}
	}
}

func TestVerifyPassword_CrossAlgorithm(t *testing.T) {
	// A hasher configured for argon2id still verifies legacy bcrypt hashes.
	legacy := newTestHasher(t, AlgorithmBcrypt)
	current := newTestHasher(t, AlgorithmArgon2id)

	hash, err := legacy.Hash("correct-horse")
	require.NoError(t, err)

	require.NoError(t, current.Verify("correct-horse", hash))
	require.ErrorIs(t, current.Verify("battery-staple", hash), ErrPasswordMismatch)
}

func TestVerifyPassword_Pepper(t *testing.T) {
	peppered := newTestHasher(t, AlgorithmArgon2id, WithPepper([]byte("pepper-a")))
	other := newTestHasher(t, AlgorithmArgon2id, WithPepper([]byte("pepper-b")))

	hash, err := peppered.Hash("correct-horse")
	require.NoError(t, err)

	require.NoError(t, peppered.Verify("correct-horse", hash))
	require.ErrorIs(t, other.Verify("correct-horse", hash), ErrPasswordMismatch)
}

func TestVerifyPassword_InvalidHashFormat(t *testing.T) {
	h := newTestHasher(t, AlgorithmArgon2id)

	tests := []struct {
		name        string
		invalidHash string
	}{
		{"empty hash", ""},
		{"unknown scheme", "$md5$abc"},
		{"missing parts", "$argon2id$v=19$m=19456"},
		{"malformed parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"invalid base64 salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA"},
		{"invalid base64 hash", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!invalid!!!"},
		{"wrong version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"truncated bcrypt", "$2a$10$short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Verify("test-password", tt.invalidHash)
			require.ErrorIs(t, err, ErrInvalidHash)
		})
	}
}
