package authsdk

import (
	"time"

	"github.com/aussiebroadwan/passport/pkg/jwtx"
)

// ErrorResponse is the error body every endpoint returns.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ============================================================================
// Authentication
// ============================================================================

// PasswordLoginRequest is the body of POST /v1/auth/password.
type PasswordLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// MFARequest carries a one-time code, for POST /v1/auth/mfa,
// POST /v1/mfa/totp/verify and DELETE /v1/mfa/totp.
type MFARequest struct {
	Code string `json:"code"`
}

// TokenResponse is returned by every endpoint that mints a token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the token lifetime in seconds
	ExpiresIn int `json:"expires_in"`

	// AuthType is "full", "requires_mfa" or "requires_validation"
	AuthType string `json:"auth_type"`
}

// ============================================================================
// Users
// ============================================================================

// CreateUserRequest is the body of POST /v1/users.
type CreateUserRequest struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	DisplayName string   `json:"display_name,omitempty"`
	UserType    string   `json:"user_type,omitempty"`
	Groups      []string `json:"groups,omitempty"`
	State       string   `json:"state,omitempty"`
}

// UserResponse describes a user. It never carries credential material.
type UserResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	UserType    string     `json:"user_type"`
	Groups      []string   `json:"groups"`
	State       string     `json:"state"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// UserInfoResponse echoes the claims of the presented token.
type UserInfoResponse struct {
	Sub       string    `json:"sub"`
	UserType  string    `json:"user_type"`
	Name      string    `json:"name"`
	Groups    []string  `json:"groups"`
	AuthType  string    `json:"auth_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ============================================================================
// Credentials
// ============================================================================

// ChangePasswordRequest is the body of POST /v1/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// TOTPEnrollResponse is returned once by POST /v1/mfa/totp. The secret
// cannot be fetched again.
type TOTPEnrollResponse struct {
	Secret  string `json:"secret"`
	URL     string `json:"otpauth_url"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`

	// QRCodePNG is a base64 PNG of URL, present when ?qr=1 was requested
	QRCodePNG string `json:"qr_code_png,omitempty"`
}

// ============================================================================
// Health & Discovery
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each dependency checked by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the public key set served at /.well-known/jwks.json.
type JWKSResponse = jwtx.JWKS
