package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/credential"
	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/internal/passport/metrics"
	"github.com/aussiebroadwan/passport/internal/passport/store"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

type CredentialService struct {
	Store    store.Store
	Verifier *credential.Verifier
	Pool     *HashPool
	Metrics  *metrics.Metrics
	Now      func() time.Time

	locks keyedMutex
}

// ChangePassword replaces the user's password after checking the current
// one. The new password may not match the current or any retired password.
func (s *CredentialService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := validatePassword(next); err != nil {
		return err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	cred, err := s.Store.Credentials().Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	var (
		currentRes, nextRes credential.PasswordResult
		updated             domain.Credential
		verifyErr           error
	)
	if err := s.Pool.Do(ctx, func() {
		if currentRes, verifyErr = s.Verifier.VerifyPassword(cred, current); verifyErr != nil || !currentRes.OK() {
			return
		}
		if nextRes, verifyErr = s.Verifier.VerifyPassword(cred, next); verifyErr != nil || nextRes.Outcome != credential.PasswordFailed {
			return
		}
		updated, verifyErr = s.Verifier.ChangePassword(cred, next)
	}); err != nil {
		return err
	}
	if verifyErr != nil {
		return verifyErr
	}
	s.Metrics.PasswordCheck(currentRes.Outcome.String())
	if !currentRes.OK() {
		return ErrInvalidCredentials
	}
	if nextRes.Outcome != credential.PasswordFailed {
		return ErrPasswordReused
	}

	if err := s.Store.Credentials().Save(ctx, updated); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	slogx.FromContext(slogx.WithUserID(ctx, userID)).Info("password changed", slog.Int("history_len", updated.History.Len()))
	return nil
}

// EnrollTOTP generates a TOTP secret and parks it as a pending enrollment.
// The factor is not enforced until ConfirmTOTP sees a valid code for it.
// Enrolling again before confirming replaces the pending secret, so a lost
// enrollment response is recovered by simply enrolling again.
func (s *CredentialService) EnrollTOTP(ctx context.Context, userID string) (credential.Enrollment, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		return credential.Enrollment{}, fmt.Errorf("load user: %w", err)
	}
	cred, err := s.Store.Credentials().Load(ctx, userID)
	if err != nil {
		return credential.Enrollment{}, fmt.Errorf("load credential: %w", err)
	}
	if cred.MFAEnabled() {
		return credential.Enrollment{}, ErrMFAAlreadyEnabled
	}

	_, enrollment, err := s.Verifier.EnrollMFA(cred, domain.MFATOTP, credential.WithAccountName(user.Username))
	if err != nil {
		return credential.Enrollment{}, err
	}
	pending := domain.PendingMFA{
		UserID:    userID,
		Kind:      enrollment.Kind,
		Secret:    enrollment.Secret,
		CreatedAt: nowOr(s.Now),
	}
	if err := s.Store.Enrollments().Put(ctx, pending); err != nil {
		return credential.Enrollment{}, fmt.Errorf("save enrollment: %w", err)
	}

	slogx.FromContext(slogx.WithUserID(ctx, userID)).Info("totp enrollment pending")
	return enrollment, nil
}

// ConfirmTOTP enables the pending TOTP secret once code verifies against it.
func (s *CredentialService) ConfirmTOTP(ctx context.Context, userID, code string) error {
	ctx = slogx.WithUserID(ctx, userID)

	unlock := s.locks.Lock(userID)
	defer unlock()

	cred, err := s.Store.Credentials().Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if cred.MFAEnabled() {
		return ErrMFAAlreadyEnabled
	}

	pending, err := s.Store.Enrollments().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMFANotPending
	}
	if err != nil {
		return fmt.Errorf("load enrollment: %w", err)
	}

	now := nowOr(s.Now)
	enabled := pending.Apply(cred, now)
	res, err := s.Verifier.CheckMFA(enabled, code, now)
	if err != nil {
		return err
	}
	s.Metrics.MFACheck(res.String())
	if res != credential.MFASuccess {
		slogx.FromContext(ctx).Info("totp confirmation rejected")
		return ErrInvalidMFACode
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Credentials().Save(ctx, enabled); err != nil {
			return fmt.Errorf("save credential: %w", err)
		}
		return tx.Enrollments().Delete(ctx, userID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("totp enabled")
	return nil
}

// RemoveMFA disables the second factor. A current code is required so a
// stolen session alone cannot strip the factor.
func (s *CredentialService) RemoveMFA(ctx context.Context, userID, code string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	cred, err := s.Store.Credentials().Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	res, err := s.Verifier.CheckMFA(cred, code, nowOr(s.Now))
	if err != nil {
		return err
	}
	s.Metrics.MFACheck(res.String())
	switch res {
	case credential.MFASuccess:
	case credential.MFANotConfigured:
		return ErrMFANotEnabled
	default:
		return ErrInvalidMFACode
	}

	if err := s.Store.Credentials().Save(ctx, s.Verifier.RemoveMFA(cred)); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	slogx.FromContext(slogx.WithUserID(ctx, userID)).Info("mfa removed")
	return nil
}

// ResetMFA is the administrative override for a user who lost their second
// factor. It clears both an enabled factor and any pending enrollment
// without asking for a code.
func (s *CredentialService) ResetMFA(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	cred, err := s.Store.Credentials().Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	_, err = s.Store.Enrollments().Get(ctx, userID)
	hasPending := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load enrollment: %w", err)
	}
	if !cred.MFAEnabled() && !hasPending {
		return ErrMFANotEnabled
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if cred.MFAEnabled() {
			if err := tx.Credentials().Save(ctx, s.Verifier.RemoveMFA(cred)); err != nil {
				return fmt.Errorf("save credential: %w", err)
			}
		}
		if hasPending {
			return tx.Enrollments().Delete(ctx, userID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slogx.FromContext(slogx.WithUserID(ctx, userID)).Warn("mfa reset by administrator",
		slog.Bool("had_factor", cred.MFAEnabled()),
		slog.Bool("had_pending", hasPending),
	)
	return nil
}

// IsNotFound reports whether err means the user or credential is missing.
func IsNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
