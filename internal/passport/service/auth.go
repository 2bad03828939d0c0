package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/credential"
	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/internal/passport/metrics"
	"github.com/aussiebroadwan/passport/internal/passport/store"
	"github.com/aussiebroadwan/passport/internal/passport/token"
	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

type AuthService struct {
	Store    store.Store
	Verifier *credential.Verifier
	Issuer   *token.Issuer
	Pool     *HashPool
	Metrics  *metrics.Metrics

	SessionTTL   time.Duration // defaults to token.DefaultLoginTTL
	ChallengeTTL time.Duration // defaults to DefaultChallengeTTL
	Now          func() time.Time

	dummyOnce sync.Once
	dummy     domain.Credential
	dummyErr  error
}

// LoginPassword authenticates username/password and mints a token whose
// auth_type reflects what is still missing: RequiresMFA when a second factor
// is configured, RequiresValidation when the account is not activated.
func (s *AuthService) LoginPassword(ctx context.Context, username, password string) (token.Token, error) {
	user, err := s.Store.Users().GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		s.burnHash(ctx, password)
		s.Metrics.PasswordCheck("unknown_user")
		return token.Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return token.Token{}, fmt.Errorf("load user: %w", err)
	}
	ctx = slogx.WithUserID(ctx, user.ID)
	l := slogx.FromContext(ctx)

	cred, err := s.Store.Credentials().Load(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		l.Warn("user has no credential")
		s.burnHash(ctx, password)
		return token.Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return token.Token{}, fmt.Errorf("load credential: %w", err)
	}

	res, err := s.verifyPassword(ctx, cred, password)
	if err != nil {
		return token.Token{}, err
	}
	s.Metrics.PasswordCheck(res.Outcome.String())

	switch res.Outcome {
	case credential.PasswordSuccess:
	case credential.PasswordFailedPrevious:
		l.Info("login with retired password", slog.Time("changed_at", res.ChangedAt))
		return token.Token{}, ErrInvalidCredentials
	default:
		l.Info("login failed")
		return token.Token{}, ErrInvalidCredentials
	}

	if user.State == domain.UserDisabled {
		l.Info("login refused for disabled user")
		return token.Token{}, ErrAccountLocked
	}

	authType, ttl := domain.AuthFull, s.sessionTTL()
	switch {
	case cred.MFAEnabled():
		authType, ttl = domain.AuthRequiresMFA, s.challengeTTL()
	case user.State == domain.UserNotActivated:
		authType = domain.AuthRequiresValidation
	}

	tok, err := s.issue(user, ttl, authType)
	if err != nil {
		return token.Token{}, err
	}

	// A pending MFA challenge is not a login yet.
	if authType != domain.AuthRequiresMFA {
		s.touchLastLogin(ctx, user.ID)
	}

	l.Info("password login", slog.String("auth_type", string(authType)))
	return tok, nil
}

// CompleteMFA exchanges a RequiresMFA challenge plus a valid code for a new
// token. The challenge token itself is never upgraded.
func (s *AuthService) CompleteMFA(ctx context.Context, challenge token.SessionClaims, code string) (token.Token, error) {
	if challenge.AuthType != domain.AuthRequiresMFA {
		return token.Token{}, ErrNotMFAChallenge
	}

	user, err := s.Store.Users().GetByID(ctx, challenge.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return token.Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return token.Token{}, fmt.Errorf("load user: %w", err)
	}
	if user.State == domain.UserDisabled {
		return token.Token{}, ErrAccountLocked
	}
	ctx = slogx.WithUserID(ctx, user.ID)
	l := slogx.FromContext(ctx)

	cred, err := s.Store.Credentials().Load(ctx, user.ID)
	if err != nil {
		return token.Token{}, fmt.Errorf("load credential: %w", err)
	}

	res, err := s.Verifier.CheckMFA(cred, code, nowOr(s.Now))
	if err != nil {
		l.Error("mfa check failed", slog.Any("error", err))
		return token.Token{}, err
	}
	s.Metrics.MFACheck(res.String())

	switch res {
	case credential.MFASuccess:
	case credential.MFANotConfigured:
		return token.Token{}, ErrMFANotEnabled
	default:
		l.Info("mfa code rejected")
		return token.Token{}, ErrInvalidMFACode
	}

	authType := domain.AuthFull
	if user.State == domain.UserNotActivated {
		authType = domain.AuthRequiresValidation
	}

	tok, err := s.issue(user, s.sessionTTL(), authType)
	if err != nil {
		return token.Token{}, err
	}
	s.touchLastLogin(ctx, user.ID)

	l.Info("mfa login", slog.String("auth_type", string(authType)))
	return tok, nil
}

func (s *AuthService) issue(user domain.User, ttl time.Duration, authType domain.AuthType) (token.Token, error) {
	tok, err := s.Issuer.Issue(user.ID, ttl, user.Claims(), authType)
	if err != nil {
		return token.Token{}, fmt.Errorf("issue token: %w", err)
	}
	s.Metrics.TokenIssued(string(authType))
	return tok, nil
}

func (s *AuthService) verifyPassword(ctx context.Context, cred domain.Credential, password string) (credential.PasswordResult, error) {
	var (
		res       credential.PasswordResult
		verifyErr error
	)
	if err := s.Pool.Do(ctx, func() {
		res, verifyErr = s.Verifier.VerifyPassword(cred, password)
	}); err != nil {
		return credential.PasswordResult{}, err
	}
	if verifyErr != nil {
		slogx.FromContext(ctx).Error("stored password hash unusable", slog.Any("error", verifyErr))
		return credential.PasswordResult{}, verifyErr
	}
	return res, nil
}

// burnHash spends the same work as a real verification so unknown
// usernames cannot be told apart by response time.
func (s *AuthService) burnHash(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		secret, err := cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			s.dummyErr = err
			return
		}
		s.dummy, s.dummyErr = s.Verifier.NewCredential("dummy", secret)
	})
	if s.dummyErr != nil {
		return
	}
	_ = s.Pool.Do(ctx, func() {
		_, _ = s.Verifier.VerifyPassword(s.dummy, password)
	})
}

func (s *AuthService) touchLastLogin(ctx context.Context, userID string) {
	if err := s.Store.Users().UpdateLastLogin(ctx, userID, nowOr(s.Now)); err != nil {
		slogx.FromContext(ctx).Warn("update last login", slog.Any("error", err))
	}
}

func (s *AuthService) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return token.DefaultLoginTTL
}

func (s *AuthService) challengeTTL() time.Duration {
	if s.ChallengeTTL > 0 {
		return s.ChallengeTTL
	}
	return DefaultChallengeTTL
}
