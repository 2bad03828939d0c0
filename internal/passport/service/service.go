// Package service glues the credential verifier, the token issuer and the
// store into the operations the HTTP layer exposes.
package service

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountLocked      = errors.New("account_locked")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrInvalidInput       = errors.New("invalid_input")
	ErrPasswordReused     = errors.New("password_reused")
	ErrMFAAlreadyEnabled  = errors.New("mfa_already_enabled")
	ErrMFANotEnabled      = errors.New("mfa_not_enabled")
	ErrMFANotPending      = errors.New("mfa_not_pending")
	ErrInvalidMFACode     = errors.New("invalid_mfa_code")
	ErrNotMFAChallenge    = errors.New("not_mfa_challenge")
	ErrIDSpaceExhausted   = errors.New("id_space_exhausted")
)

const (
	// DefaultChallengeTTL bounds how long a RequiresMFA token can be
	// exchanged for a full session.
	DefaultChallengeTTL = 5 * time.Minute

	// MinPasswordLength applies to new passwords only.
	MinPasswordLength = 8
	MaxPasswordLength = 256
)

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLength || len(pw) > MaxPasswordLength {
		return errors.Join(ErrInvalidInput, errors.New("password length out of range"))
	}
	return nil
}

func nowOr(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}
