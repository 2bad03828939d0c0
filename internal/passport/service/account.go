package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/credential"
	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/internal/passport/store"
	"github.com/aussiebroadwan/passport/pkg/idx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// maxIDAttempts caps retries when a freshly generated user id collides.
const maxIDAttempts = 3

// NewAccount is the input to AccountService.Create.
type NewAccount struct {
	Username    string
	Password    string
	DisplayName string
	Type        domain.UserType  // defaults to domain.UserTypeUser
	Groups      []string
	State       domain.UserState // defaults to domain.UserActive
}

type AccountService struct {
	Store    store.Store
	Verifier *credential.Verifier
	Pool     *HashPool
	NewID    idx.Source
	Now      func() time.Time
}

// Create stores a user and its credential together. Username conflicts
// return ErrUsernameTaken.
func (s *AccountService) Create(ctx context.Context, in NewAccount) (domain.User, error) {
	l := slogx.FromContext(ctx)

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return domain.User{}, errors.Join(ErrInvalidInput, errors.New("username required"))
	}
	if err := validatePassword(in.Password); err != nil {
		return domain.User{}, err
	}
	if in.Type == "" {
		in.Type = domain.UserTypeUser
	}
	if _, err := domain.ParseUserType(string(in.Type)); err != nil {
		return domain.User{}, errors.Join(ErrInvalidInput, err)
	}
	switch in.State {
	case "":
		in.State = domain.UserActive
	case domain.UserActive, domain.UserDisabled, domain.UserNotActivated:
	default:
		return domain.User{}, errors.Join(ErrInvalidInput, fmt.Errorf("unknown state %q", in.State))
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}

	newID := s.NewID
	if newID == nil {
		newID = func() idx.ID { return idx.NewAt(nowOr(s.Now)) }
	}

	// Hash once; only the id changes between attempts.
	var (
		cred    domain.Credential
		hashErr error
	)
	if err := s.Pool.Do(ctx, func() {
		cred, hashErr = s.Verifier.NewCredential(string(newID()), in.Password)
	}); err != nil {
		return domain.User{}, err
	}
	if hashErr != nil {
		return domain.User{}, hashErr
	}

	now := nowOr(s.Now)
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		if attempt > 1 {
			cred.UserID = string(newID())
		}
		user := domain.User{
			ID:          cred.UserID,
			Username:    in.Username,
			DisplayName: in.DisplayName,
			Type:        in.Type,
			Groups:      slices.Clone(in.Groups),
			State:       in.State,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Users().Create(ctx, user); err != nil {
				return err
			}
			return tx.Credentials().Save(ctx, cred)
		})
		switch {
		case err == nil:
			l.Info("user created", slog.String(slogx.UserIDKey, user.ID), slog.String("username", user.Username))
			return user, nil
		case errors.Is(err, store.ErrDuplicateUsername):
			return domain.User{}, ErrUsernameTaken
		case errors.Is(err, store.ErrDuplicateID):
			l.Warn("user id collision, retrying", slog.String(slogx.UserIDKey, user.ID), slog.Int("attempt", attempt))
			continue
		default:
			return domain.User{}, fmt.Errorf("create user: %w", err)
		}
	}

	l.Error("user id generation exhausted", slog.Int("attempts", maxIDAttempts))
	return domain.User{}, ErrIDSpaceExhausted
}

// Get fetches a user by id.
func (s *AccountService) Get(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetByID(ctx, userID)
}

// Delete removes the user and, by cascade, its credential.
func (s *AccountService) Delete(ctx context.Context, userID string) error {
	if err := s.Store.Users().Delete(ctx, userID); err != nil {
		return err
	}
	slogx.FromContext(slogx.WithUserID(ctx, userID)).Info("user deleted")
	return nil
}
