package httpx

import (
	"net/http"
)

// RequireClaims lets the request through only when the authenticated
// claims satisfy allow. It must run after AuthnMiddleware; a request
// without claims is treated as unauthenticated.
func RequireClaims[C any](allow func(C) bool, desc string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext[C](r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}
			if !allow(claims) {
				writeInsufficientError(w, desc)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer insufficient_scope.
func writeInsufficientError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", error_description="`+desc+`"`)
	WriteError(w, http.StatusForbidden, "insufficient_scope", desc)
}
