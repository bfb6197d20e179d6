package domain

import (
	"errors"
	"time"
)

// User is the core user entity. A user created through an identity provider has no PasswordHash.
type User struct {
	ID           string
	Email        string // unique; compared exactly as stored
	Name         string
	PasswordHash string // empty for provider-only users
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the user can sign in through the credential path.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	return nil
}
