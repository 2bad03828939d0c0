package http

import (
	"net/http"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/internal/passport/service"
	"github.com/aussiebroadwan/passport/pkg/authsdk"
	"github.com/aussiebroadwan/passport/pkg/httpx"
	"github.com/aussiebroadwan/passport/pkg/idx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// UsersHandler serves account management.
type UsersHandler struct {
	AccountService *service.AccountService
}

// HandleCreate handles POST /v1/users.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		slogx.FromContext(r.Context()).Warn("failed to parse request", "err", err)
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.AccountService.Create(r.Context(), service.NewAccount{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Type:        domain.UserType(req.UserType),
		Groups:      req.Groups,
		State:       domain.UserState(req.State),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/users/"+user.ID)
	httpx.WriteJSON(w, http.StatusCreated, userResponse(user))
}

// HandleGet handles GET /v1/users/{id}. Non-admins may only read themselves.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	id, ok := userID(r)
	if !ok {
		authsdk.ErrNotFound.WriteError(w)
		return
	}
	if id != claims.Subject && claims.User.Type != domain.UserTypeAdmin {
		authsdk.ErrInsufficientScope.WriteError(w)
		return
	}

	user, err := h.AccountService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}

// HandleDelete handles DELETE /v1/users/{id}.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		authsdk.ErrNotFound.WriteError(w)
		return
	}
	if err := h.AccountService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userID reads the {id} path value. Anything that is not a ULID cannot
// name a user.
func userID(r *http.Request) (string, bool) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func userResponse(u domain.User) authsdk.UserResponse {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	return authsdk.UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		UserType:    string(u.Type),
		Groups:      groups,
		State:       string(u.State),
		LastLogin:   u.LastLogin,
		CreatedAt:   u.CreatedAt,
	}
}
