package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/credential"
	httpapi "github.com/aussiebroadwan/passport/internal/passport/http"
	"github.com/aussiebroadwan/passport/internal/passport/metrics"
	"github.com/aussiebroadwan/passport/internal/passport/service"
	"github.com/aussiebroadwan/passport/internal/passport/store"
	"github.com/aussiebroadwan/passport/internal/passport/store/drivers/postgres"
	"github.com/aussiebroadwan/passport/internal/passport/store/drivers/sqlite"
	"github.com/aussiebroadwan/passport/internal/passport/token"
	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the passport service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	keys    *token.Keys
	metrics *metrics.Metrics

	// Services
	accountService    *service.AccountService
	authService       *service.AuthService
	credentialService *service.CredentialService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// Option customises an Application beyond what Config expresses.
type Option func(*Application)

// WithLogger replaces the logger built from Config.
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) { a.logger = l }
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config, opts ...Option) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "passport",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(BuildVersion),
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	keys, err := LoadKeys(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to load signing keys: %w", err)
	}
	app.keys = keys

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	if err := app.ensureAdmin(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("passport starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down passport...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("passport stopped")
	return nil
}

// initDatabase opens the configured credential store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.Open(ctx, app.cfg.DatabaseDSN)
	case DriverSQLite:
		db, err = sqlite.NewStore(app.cfg.DatabaseDSN)
	default:
		err = fmt.Errorf("unknown driver %q", app.cfg.DatabaseDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initServices builds the hasher, verifier and token services
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrGeneratePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	hasher, err := cryptox.NewPasswordHasher(app.cfg.PasswordAlgorithm,
		cryptox.WithArgon2Params(app.cfg.argon2Params()),
		cryptox.WithBcryptCost(app.cfg.BcryptCost),
		cryptox.WithPepper(pepper),
	)
	if err != nil {
		return fmt.Errorf("failed to build password hasher: %w", err)
	}

	verifier := credential.NewVerifier(hasher, credential.WithTOTPIssuer(app.cfg.Issuer))
	issuer := token.NewIssuer(app.keys, token.WithIssuerName(app.cfg.Issuer))
	pool := service.NewHashPool(app.cfg.HashPoolSize)

	app.accountService = &service.AccountService{
		Store:    app.db,
		Verifier: verifier,
		Pool:     pool,
	}
	app.authService = &service.AuthService{
		Store:        app.db,
		Verifier:     verifier,
		Issuer:       issuer,
		Pool:         pool,
		Metrics:      app.metrics,
		SessionTTL:   app.cfg.SessionTTL,
		ChallengeTTL: app.cfg.ChallengeTTL,
	}
	app.credentialService = &service.CredentialService{
		Store:    app.db,
		Verifier: verifier,
		Pool:     pool,
		Metrics:  app.metrics,
	}

	app.logger.Info("password hashing configured",
		"algorithm", hasher.Algorithm(),
		"peppered", len(pepper) > 0,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		token.NewValidator(app.keys, token.WithIssuerName(app.cfg.Issuer)),
		BuildVersion,
		app.db,
		app.logger,
		app.metrics,
	)

	router.AccountService = app.accountService
	router.AuthService = app.authService
	router.CredentialService = app.credentialService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
