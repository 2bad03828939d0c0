package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported password hashing algorithms.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

var (
	// ErrPasswordMismatch is returned when a password does not match the hash.
	ErrPasswordMismatch = errors.New("cryptox: password does not match")

	// ErrInvalidHash is returned when a stored hash cannot be parsed. This
	// means the stored data is corrupt, not that the password was wrong.
	ErrInvalidHash = errors.New("cryptox: invalid password hash")
)

// Argon2Params tunes the Argon2id work factor.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params follow the OWASP minimum for Argon2id (19 MiB, t=2, p=1).
var DefaultArgon2Params = Argon2Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// DefaultBcryptCost matches the cost the legacy store used for its hashes.
const DefaultBcryptCost = 10

// PasswordHasher hashes new passwords with one configured algorithm and
// verifies hashes produced by any supported algorithm, so stored bcrypt
// hashes keep working after switching to Argon2id (and vice versa).
//
// A PasswordHasher is immutable after construction and safe for concurrent use.
type PasswordHasher struct {
	algorithm  string
	argon2     Argon2Params
	bcryptCost int
	pepper     []byte
}

// HasherOption configures a PasswordHasher.
type HasherOption func(*PasswordHasher)

// WithArgon2Params overrides the Argon2id work factor.
func WithArgon2Params(p Argon2Params) HasherOption {
	return func(h *PasswordHasher) { h.argon2 = p }
}

// WithBcryptCost overrides the bcrypt cost.
func WithBcryptCost(cost int) HasherOption {
	return func(h *PasswordHasher) { h.bcryptCost = cost }
}

// WithPepper mixes a server-side secret into Argon2id hashes. The pepper is
// not applied to bcrypt, whose input is capped at 72 bytes.
func WithPepper(pepper []byte) HasherOption {
	return func(h *PasswordHasher) {
		h.pepper = append([]byte(nil), pepper...)
	}
}

// NewPasswordHasher builds a hasher for the given algorithm.
func NewPasswordHasher(algorithm string, opts ...HasherOption) (*PasswordHasher, error) {
	h := &PasswordHasher{
		algorithm:  strings.ToLower(algorithm),
		argon2:     DefaultArgon2Params,
		bcryptCost: DefaultBcryptCost,
	}
	for _, opt := range opts {
		opt(h)
	}

	switch h.algorithm {
	case AlgorithmArgon2id:
		if h.argon2.Memory == 0 || h.argon2.Iterations == 0 || h.argon2.Parallelism == 0 {
			return nil, errors.New("cryptox: argon2 parameters must be positive")
		}
		if h.argon2.SaltLength < 8 || h.argon2.KeyLength < 16 {
			return nil, errors.New("cryptox: argon2 salt or key length too short")
		}
	case AlgorithmBcrypt:
		if h.bcryptCost < bcrypt.MinCost || h.bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("cryptox: bcrypt cost %d out of range", h.bcryptCost)
		}
	default:
		return nil, fmt.Errorf("cryptox: unsupported password algorithm %q", algorithm)
	}

	return h, nil
}

// Algorithm returns the algorithm used for new hashes.
func (h *PasswordHasher) Algorithm() string { return h.algorithm }

// Hash returns an encoded, salted hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.algorithm == AlgorithmBcrypt {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("cryptox: bcrypt: %w", err)
		}
		return string(hash), nil
	}
	return h.hashArgon2(password)
}

// Verify checks password against an encoded hash. It returns nil on match,
// ErrPasswordMismatch on mismatch and ErrInvalidHash (wrapped) when the
// encoded hash is unreadable. Comparison is constant time in both schemes.
func (h *PasswordHasher) Verify(password, encoded string) error {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return h.verifyArgon2(password, encoded)
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return ErrPasswordMismatch
		default:
			return fmt.Errorf("%w: %v", ErrInvalidHash, err)
		}
	default:
		return fmt.Errorf("%w: unknown scheme", ErrInvalidHash)
	}
}

func (h *PasswordHasher) hashArgon2(password string) (string, error) {
	p := h.argon2
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey(h.peppered(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func (h *PasswordHasher) verifyArgon2(password, encoded string) error {
	// $argon2id$v=19$m=X,t=Y,p=Z$salt$hash
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}
	if mem == 0 || iters == 0 || par == 0 {
		return fmt.Errorf("%w: zero parameter", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return fmt.Errorf("%w: hash", ErrInvalidHash)
	}

	computed := argon2.IDKey(
		h.peppered(password),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - length of a decoded hash
	)
	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

func (h *PasswordHasher) peppered(password string) []byte {
	b := make([]byte, 0, len(password)+len(h.pepper))
	b = append(b, password...)
	return append(b, h.pepper...)
}
