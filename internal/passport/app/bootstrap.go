package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/internal/passport/service"
	"github.com/aussiebroadwan/passport/internal/passport/store"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// ensureAdmin seeds the configured admin account. An existing user with
// that name is left untouched, so restarts never reset its password.
func (app *Application) ensureAdmin(ctx context.Context) error {
	if app.cfg.AdminUsername == "" {
		return nil
	}
	ctx = slogx.WithContext(ctx, app.logger)

	_, err := app.db.Users().GetByUsername(ctx, app.cfg.AdminUsername)
	switch {
	case err == nil:
		app.logger.Info("admin account present", "username", app.cfg.AdminUsername)
		return nil
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("look up admin account: %w", err)
	}

	_, err = app.accountService.Create(ctx, service.NewAccount{
		Username: app.cfg.AdminUsername,
		Password: app.cfg.AdminPassword,
		Type:     domain.UserTypeAdmin,
	})
	if err != nil && !errors.Is(err, service.ErrUsernameTaken) {
		return fmt.Errorf("seed admin account: %w", err)
	}
	return nil
}
