package http

import (
	"encoding/base64"
	"net/http"

	"github.com/aussiebroadwan/passport/internal/passport/service"
	"github.com/aussiebroadwan/passport/pkg/authsdk"
	"github.com/aussiebroadwan/passport/pkg/httpx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// qrCodeSize is the edge length in pixels of enrollment QR codes.
const qrCodeSize = 256

// CredentialsHandler serves password and MFA management for the caller.
type CredentialsHandler struct {
	CredentialService *service.CredentialService
}

// HandleChangePassword handles POST /v1/password.
func (h *CredentialsHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		slogx.FromContext(r.Context()).Warn("failed to parse request", "err", err)
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.CredentialService.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEnrollTOTP handles POST /v1/mfa/totp. Pass ?qr=1 for a PNG QR code.
func (h *CredentialsHandler) HandleEnrollTOTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	enrollment, err := h.CredentialService.EnrollTOTP(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := authsdk.TOTPEnrollResponse{
		Secret:  enrollment.Secret,
		URL:     enrollment.URL,
		Issuer:  enrollment.Issuer,
		Account: enrollment.Account,
	}
	if r.URL.Query().Get("qr") == "1" {
		png, err := enrollment.QRCodePNG(qrCodeSize, qrCodeSize)
		if err != nil {
			// The enrollment is stored; the URL still lets the user enroll.
			slogx.FromContext(r.Context()).Error("render totp qr code", "err", err)
		} else {
			resp.QRCodePNG = base64.StdEncoding.EncodeToString(png)
		}
	}

	httpx.WriteJSON(w, http.StatusCreated, resp)
}

// HandleConfirmTOTP handles POST /v1/mfa/totp/verify.
func (h *CredentialsHandler) HandleConfirmTOTP(w http.ResponseWriter, r *http.Request) {
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

	if err := h.CredentialService.ConfirmTOTP(r.Context(), claims.Subject, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveTOTP handles DELETE /v1/mfa/totp.
func (h *CredentialsHandler) HandleRemoveTOTP(w http.ResponseWriter, r *http.Request) {
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

	if err := h.CredentialService.RemoveMFA(r.Context(), claims.Subject, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResetMFA handles DELETE /v1/users/{id}/mfa, the administrative
// override for a user who lost their second factor.
func (h *CredentialsHandler) HandleResetMFA(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		authsdk.ErrNotFound.WriteError(w)
		return
	}

	if err := h.CredentialService.ResetMFA(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
