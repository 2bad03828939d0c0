package domain

import (
	"fmt"
	"slices"
)

// UserType is the role a user holds.
type UserType string

const (
	UserTypeAdmin UserType = "admin"
	UserTypeUser  UserType = "user"
	UserTypeGuest UserType = "guest"
)

// ParseUserType accepts the canonical lowercase names.
func ParseUserType(s string) (UserType, error) {
	switch t := UserType(s); t {
	case UserTypeAdmin, UserTypeUser, UserTypeGuest:
		return t, nil
	default:
		return "", fmt.Errorf("domain: unknown user type %q", s)
	}
}

// AuthType is the authentication strength actually achieved when a token
// was minted. It is independent of UserType.
type AuthType string

const (
	// AuthFull means every configured factor was verified.
	AuthFull AuthType = "full"
	// AuthRequiresMFA means the password was verified but a second factor
	// is still outstanding.
	AuthRequiresMFA AuthType = "requires_mfa"
	// AuthRequiresValidation means the account has not been activated yet.
	AuthRequiresValidation AuthType = "requires_validation"
)

// Valid reports whether a is a known strength.
func (a AuthType) Valid() bool {
	switch a {
	case AuthFull, AuthRequiresMFA, AuthRequiresValidation:
		return true
	}
	return false
}

// Claims is the authorization payload carried inside a session token.
type Claims struct {
	Type   UserType `json:"user_type"`
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Groups []string `json:"groups"`
}

// InGroup reports membership of group.
func (c Claims) InGroup(group string) bool {
	return slices.Contains(c.Groups, group)
}
