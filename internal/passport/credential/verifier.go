// Package credential decides whether presented secrets prove a user's
// identity. It works on domain.Credential values and never persists
// anything: mutating operations return a new value for the caller to save.
package credential

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTP parameters. Authenticator apps assume these defaults.
const (
	TOTPPeriod = 30
	TOTPSkew   = 1
	TOTPDigits = otp.DigitsSix
)

var (
	ErrEmptyUserID        = errors.New("credential: empty user id")
	ErrMFAKindNone        = errors.New("credential: nothing to enroll for mfa kind none")
	ErrUnsupportedMFAKind = errors.New("credential: unsupported mfa kind")
	ErrMissingMFASecret   = errors.New("credential: mfa enabled but secret missing")
)

// PasswordHasher is the slow salted hash the verifier delegates to.
// *cryptox.PasswordHasher implements it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns nil on match and cryptox.ErrPasswordMismatch on
	// mismatch. Any other error means the stored hash is unusable.
	Verify(password, encoded string) error
}

// Verifier holds no per-user state and is safe for concurrent use.
type Verifier struct {
	hasher PasswordHasher
	issuer string
	now    func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock overrides the time source used to stamp password changes.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithTOTPIssuer sets the issuer label shown by authenticator apps.
func WithTOTPIssuer(issuer string) Option {
	return func(v *Verifier) { v.issuer = issuer }
}

func NewVerifier(hasher PasswordHasher, opts ...Option) *Verifier {
	v := &Verifier{
		hasher: hasher,
		issuer: "passport",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewCredential hashes plaintext into a fresh credential with no history
// and no second factor.
func (v *Verifier) NewCredential(userID, plaintext string) (domain.Credential, error) {
	if userID == "" {
		return domain.Credential{}, ErrEmptyUserID
	}
	hash, err := v.hasher.Hash(plaintext)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("credential: hash password: %w", err)
	}
	now := v.now().UTC()
	return domain.Credential{
		UserID:       userID,
		PasswordHash: hash,
		MFA:          domain.MFANone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// VerifyPassword checks plaintext against the current hash and then every
// retired hash, newest first. The error is reserved for unreadable stored
// hashes; a wrong password is a PasswordResult, not an error.
func (v *Verifier) VerifyPassword(cred domain.Credential, plaintext string) (PasswordResult, error) {
	ok, err := v.matches(plaintext, cred.PasswordHash)
	if err != nil {
		return PasswordResult{}, fmt.Errorf("credential: current hash for %s: %w", cred.UserID, err)
	}
	if ok {
		return PasswordResult{Outcome: PasswordSuccess}, nil
	}

	for i := cred.History.Len() - 1; i >= 0; i-- {
		entry := cred.History.At(i)
		ok, err := v.matches(plaintext, entry.Hash)
		if err != nil {
			return PasswordResult{}, fmt.Errorf("credential: history hash for %s: %w", cred.UserID, err)
		}
		if ok {
			return PasswordResult{Outcome: PasswordFailedPrevious, ChangedAt: entry.ChangedAt}, nil
		}
	}

	return PasswordResult{Outcome: PasswordFailed}, nil
}

func (v *Verifier) matches(plaintext, encoded string) (bool, error) {
	err := v.hasher.Verify(plaintext, encoded)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cryptox.ErrPasswordMismatch):
		return false, nil
	default:
		return false, err
	}
}

// ChangePassword retires the current hash into the history (evicting the
// oldest beyond domain.PasswordHistoryCap) and installs a hash of
// newPlaintext. It applies no reuse policy.
func (v *Verifier) ChangePassword(cred domain.Credential, newPlaintext string) (domain.Credential, error) {
	hash, err := v.hasher.Hash(newPlaintext)
	if err != nil {
		return cred, fmt.Errorf("credential: hash password: %w", err)
	}

	now := v.now().UTC()
	cred.History.Push(domain.PasswordHistoryEntry{Hash: cred.PasswordHash, ChangedAt: now})
	cred.PasswordHash = hash
	cred.UpdatedAt = now
	return cred, nil
}

// Enrollment is returned once when a second factor is enrolled. The secret
// must reach the user out of band and is not retrievable again.
type Enrollment struct {
	Kind    domain.MFAKind
	Secret  string // base32
	URL     string // otpauth:// provisioning URI
	Issuer  string
	Account string

	key *otp.Key
}

// QRCodePNG renders the provisioning URI as a PNG QR code.
func (e Enrollment) QRCodePNG(width, height int) ([]byte, error) {
	if e.key == nil {
		return nil, errors.New("credential: enrollment has no key")
	}
	img, err := e.key.Image(width, height)
	if err != nil {
		return nil, fmt.Errorf("credential: render qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("credential: encode qr: %w", err)
	}
	return buf.Bytes(), nil
}

// EnrollOption tunes a single enrollment.
type EnrollOption func(*enrollConfig)

type enrollConfig struct {
	account string
}

// WithAccountName sets the account label shown by authenticator apps.
// It defaults to the user id.
func WithAccountName(name string) EnrollOption {
	return func(c *enrollConfig) { c.account = name }
}

// EnrollMFA generates a fresh secret for kind and enables it on the
// returned credential. Enrolling over an existing factor replaces it.
func (v *Verifier) EnrollMFA(cred domain.Credential, kind domain.MFAKind, opts ...EnrollOption) (domain.Credential, Enrollment, error) {
	switch kind {
	case domain.MFANone, "":
		return cred, Enrollment{}, ErrMFAKindNone
	case domain.MFATOTP:
	default:
		return cred, Enrollment{}, fmt.Errorf("%w: %q", ErrUnsupportedMFAKind, kind)
	}

	cfg := enrollConfig{account: cred.UserID}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.account == "" {
		return cred, Enrollment{}, ErrEmptyUserID
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.issuer,
		AccountName: cfg.account,
		Period:      TOTPPeriod,
		Digits:      TOTPDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return cred, Enrollment{}, fmt.Errorf("credential: generate totp key: %w", err)
	}

	cred.MFA = domain.MFATOTP
	cred.MFASecret = key.Secret()
	cred.UpdatedAt = v.now().UTC()

	return cred, Enrollment{
		Kind:    domain.MFATOTP,
		Secret:  key.Secret(),
		URL:     key.URL(),
		Issuer:  v.issuer,
		Account: cfg.account,
		key:     key,
	}, nil
}

// RemoveMFA clears any second factor unconditionally.
func (v *Verifier) RemoveMFA(cred domain.Credential) domain.Credential {
	cred.MFA = domain.MFANone
	cred.MFASecret = ""
	cred.UpdatedAt = v.now().UTC()
	return cred
}

// CheckMFA verifies code against the credential's second factor as of
// submittedAt, tolerating one 30 second step of clock drift either way.
// Codes of the wrong length are MFAFailed.
func (v *Verifier) CheckMFA(cred domain.Credential, code string, submittedAt time.Time) (MFAResult, error) {
	switch cred.MFA {
	case domain.MFANone, "":
		return MFANotConfigured, nil
	case domain.MFATOTP:
	default:
		return MFAFailed, fmt.Errorf("%w: %q", ErrUnsupportedMFAKind, cred.MFA)
	}

	if cred.MFASecret == "" {
		return MFAFailed, fmt.Errorf("%w: user %s", ErrMissingMFASecret, cred.UserID)
	}

	ok, err := totp.ValidateCustom(code, cred.MFASecret, submittedAt.UTC(), totp.ValidateOpts{
		Period:    TOTPPeriod,
		Skew:      TOTPSkew,
		Digits:    TOTPDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	switch {
	case errors.Is(err, otp.ErrValidateInputInvalidLength):
		return MFAFailed, nil
	case err != nil:
		return MFAFailed, fmt.Errorf("credential: totp for %s: %w", cred.UserID, err)
	case ok:
		return MFASuccess, nil
	default:
		return MFAFailed, nil
	}
}
