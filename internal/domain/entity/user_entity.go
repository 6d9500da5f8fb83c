package entity

import (
	"time"
)

// User is the aggregate root for user domain
// PasswordHash is a bcrypt hash and is only set for users created through registration;
// users created through the plain CRUD path have no credentials and cannot log in.
type User struct {
	ID           string
	Name         string
	Email        string
	Avatar       *string
	Bio          *string
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAuthenticate reports whether the user carries a password hash.
func (u *User) CanAuthenticate() bool {
	return u != nil && u.PasswordHash != nil && *u.PasswordHash != ""
}
