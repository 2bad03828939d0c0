package domain

import (
	"slices"
	"time"
)

// UserState gates whether a user may authenticate at all.
type UserState string

const (
	UserActive       UserState = "active"
	UserDisabled     UserState = "disabled"
	UserNotActivated UserState = "not_activated"
)

type User struct {
	ID          string
	Username    string
	DisplayName string
	Type        UserType
	Groups      []string
	State       UserState
	LastLogin   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Claims builds the token payload for u.
func (u User) Claims() Claims {
	return Claims{
		Type:   u.Type,
		UserID: u.ID,
		Name:   u.DisplayName,
		Groups: slices.Clone(u.Groups),
	}
}
