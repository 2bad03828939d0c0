package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Session makes requests with one bearer token. It is immutable and safe
// for concurrent use.
type Session struct {
	client *Client

	accessToken string
	authType    string
	expiresAt   time.Time
}

func newSession(client *Client, tok TokenResponse) *Session {
	return &Session{
		client:      client,
		accessToken: tok.AccessToken,
		authType:    tok.AuthType,
		expiresAt:   time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
}

func (s *Session) AccessToken() string { return s.accessToken }

// AuthType is the strength the token proves.
func (s *Session) AuthType() string { return s.authType }

// ExpiresAt is an estimate based on the local clock. Zero when unknown.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// NeedsMFA reports whether the token is an MFA challenge.
func (s *Session) NeedsMFA() bool { return s.authType == "requires_mfa" }

// CompleteMFA exchanges this challenge session and a one-time code for a
// new session. The receiver is unchanged.
func (s *Session) CompleteMFA(ctx context.Context, code string) (*Session, error) {
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/v1/auth/mfa", s.accessToken, MFARequest{Code: code})
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(s.client, tok), nil
}

// GetUserInfo returns the claims carried by the session's token.
func (s *Session) GetUserInfo(ctx context.Context) (*UserInfoResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodGet, "/v1/userinfo", s.accessToken, nil)
	if err != nil {
		return nil, err
	}

	var info UserInfoResponse
	if err := decodeJSON(resp, &info, http.StatusOK); err != nil {
		return nil, err
	}
	return &info, nil
}

// ChangePassword rotates the caller's password.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/v1/password", s.accessToken, ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// EnrollTOTP starts TOTP enrollment for the caller. The factor is enforced
// only after ConfirmTOTP. withQR asks for a PNG QR code.
func (s *Session) EnrollTOTP(ctx context.Context, withQR bool) (*TOTPEnrollResponse, error) {
	path := "/v1/mfa/totp"
	if withQR {
		path += "?" + url.Values{"qr": {"1"}}.Encode()
	}

	resp, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, nil)
	if err != nil {
		return nil, err
	}

	var enroll TOTPEnrollResponse
	if err := decodeJSON(resp, &enroll, http.StatusCreated); err != nil {
		return nil, err
	}
	return &enroll, nil
}

// ConfirmTOTP enables the pending TOTP enrollment with a code from it.
func (s *Session) ConfirmTOTP(ctx context.Context, code string) error {
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/v1/mfa/totp/verify", s.accessToken, MFARequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// RemoveTOTP disables TOTP; a current code is required.
func (s *Session) RemoveTOTP(ctx context.Context, code string) error {
	resp, err := s.client.doRequest(ctx, http.MethodDelete, "/v1/mfa/totp", s.accessToken, MFARequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// CreateUser creates an account. Requires an admin token.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/v1/users", s.accessToken, req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser fetches a user. Admins may fetch anyone, others only themselves.
func (s *Session) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), s.accessToken, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user and its credential. Requires an admin token.
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	resp, err := s.client.doRequest(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), s.accessToken, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ResetUserMFA clears a user's second factor and any pending enrollment
// without a code. Requires an admin token.
func (s *Session) ResetUserMFA(ctx context.Context, id string) error {
	resp, err := s.client.doRequest(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id)+"/mfa", s.accessToken, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
