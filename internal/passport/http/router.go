package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/internal/passport/metrics"
	"github.com/aussiebroadwan/passport/internal/passport/service"
	"github.com/aussiebroadwan/passport/internal/passport/store"
	"github.com/aussiebroadwan/passport/internal/passport/token"
	"github.com/aussiebroadwan/passport/pkg/httpx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *token.Keys
	validator    httpx.TokenValidator[token.SessionClaims]
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics

	store             store.Store
	AccountService    *service.AccountService
	AuthService       *service.AuthService
	CredentialService *service.CredentialService
}

func NewRouter(
	keys *token.Keys,
	validator *token.Validator,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		validator:    meteredValidator{v: validator, m: m},
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		metrics:      m,
	}

	// metrics must sit directly on the mux to see the matched pattern
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.metrics.Instrument,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerCredentials()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	r.Mux.HandleFunc("POST /v1/auth/password", h.HandlePassword)

	// Only an MFA challenge token may be exchanged.
	r.Mux.Handle("POST /v1/auth/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleMFA),
			httpx.AuthnMiddleware(r.validator),
			RequireAuthType(domain.AuthRequiresMFA),
		),
	)

	// Any valid token may read its own claims.
	r.Mux.Handle("GET /v1/userinfo",
		httpx.Chain(http.HandlerFunc(UserInfoHandler),
			httpx.AuthnMiddleware(r.validator),
		),
	)
}

func (r *Router) admin(next http.Handler) http.Handler {
	return httpx.Chain(next,
		httpx.AuthnMiddleware(r.validator),
		RequireAuthType(domain.AuthFull),
		RequireUserType(domain.UserTypeAdmin),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{AccountService: r.AccountService}

	r.Mux.Handle("POST /v1/users", r.admin(http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("DELETE /v1/users/{id}", r.admin(http.HandlerFunc(h.HandleDelete)))

	// Self or admin, checked by the handler.
	r.Mux.Handle("GET /v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.AuthnMiddleware(r.validator),
			RequireAuthType(domain.AuthFull),
		),
	)
}

func (r *Router) registerCredentials() {
	h := &CredentialsHandler{CredentialService: r.CredentialService}

	// Guests may not manage their own credentials.
	self := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.validator),
			RequireAuthType(domain.AuthFull),
			RequireUserTypeNot(domain.UserTypeGuest),
		)
	}

	r.Mux.Handle("POST /v1/password", self(h.HandleChangePassword))
	r.Mux.Handle("POST /v1/mfa/totp", self(h.HandleEnrollTOTP))
	r.Mux.Handle("POST /v1/mfa/totp/verify", self(h.HandleConfirmTOTP))
	r.Mux.Handle("DELETE /v1/mfa/totp", self(h.HandleRemoveTOTP))

	r.Mux.Handle("DELETE /v1/users/{id}/mfa", r.admin(http.HandlerFunc(h.HandleResetMFA)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json", JWKSHandler(r.keys))
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys))
	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
