package http

import (
	"net/http"

	"github.com/aussiebroadwan/passport/internal/passport/service"
	"github.com/aussiebroadwan/passport/internal/passport/token"
	"github.com/aussiebroadwan/passport/pkg/authsdk"
	"github.com/aussiebroadwan/passport/pkg/httpx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// AuthHandler serves the login endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
}

// HandlePassword handles POST /v1/auth/password.
func (h *AuthHandler) HandlePassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.PasswordLoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		slogx.FromContext(r.Context()).Warn("failed to parse request", "err", err)
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Username == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WithDescription("username and password are required").WriteError(w)
		return
	}

	tok, err := h.AuthService.LoginPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(tok))
}

// HandleMFA handles POST /v1/auth/mfa. The bearer token is the challenge.
func (h *AuthHandler) HandleMFA(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.MFARequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.Code == "" {
		authsdk.ErrInvalidRequest.WithDescription("code is required").WriteError(w)
		return
	}

	tok, err := h.AuthService.CompleteMFA(r.Context(), claims, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(tok))
}

func tokenResponse(tok token.Token) authsdk.TokenResponse {
	ttl := tok.ExpiresAt.Sub(tok.Claims.IssuedAt.Time)
	return authsdk.TokenResponse{
		AccessToken: tok.Raw,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		AuthType:    string(tok.Claims.AuthType),
	}
}

// UserInfoHandler handles GET /v1/userinfo.
func UserInfoHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	groups := claims.User.Groups
	if groups == nil {
		groups = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		Sub:       claims.Subject,
		UserType:  string(claims.User.Type),
		Name:      claims.User.Name,
		Groups:    groups,
		AuthType:  string(claims.AuthType),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	})
}
