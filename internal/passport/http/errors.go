package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/passport/internal/passport/service"
	"github.com/aussiebroadwan/passport/internal/passport/store"
	"github.com/aussiebroadwan/passport/pkg/authsdk"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

var serviceErrors = []struct {
	err error
	api *authsdk.APIError
}{
	{service.ErrInvalidCredentials, authsdk.ErrInvalidCredentials},
	{service.ErrAccountLocked, authsdk.ErrAccountLocked},
	{service.ErrUsernameTaken, authsdk.ErrUsernameTaken},
	{service.ErrPasswordReused, authsdk.ErrPasswordReused},
	{service.ErrMFAAlreadyEnabled, authsdk.ErrMFAAlreadyEnabled},
	{service.ErrMFANotEnabled, authsdk.ErrMFANotEnabled},
	{service.ErrMFANotPending, authsdk.ErrMFANotPending},
	{service.ErrInvalidMFACode, authsdk.ErrInvalidMFACode},
	{service.ErrNotMFAChallenge, authsdk.ErrNotMFAChallenge},
	{store.ErrNotFound, authsdk.ErrNotFound},
}

// writeServiceError maps a service error onto its response. Anything
// unexpected is logged and reported as an opaque server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrInvalidInput) {
		desc := authsdk.ErrInvalidRequest.Description
		if _, detail, ok := strings.Cut(err.Error(), "\n"); ok {
			desc = detail
		}
		authsdk.ErrInvalidRequest.WithDescription(desc).WriteError(w)
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			m.api.WriteError(w)
			return
		}
	}

	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	authsdk.ErrServerError.WriteError(w)
}
