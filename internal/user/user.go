// Package user defines the user model used throughout the application,
// particularly for authentication and bookmark ownership.
package user

import "time"

// User represents a registered account.
// It is both the stored credential record and the authenticated identity
// attached to protected requests.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id"`

	// Email is unique across users and compared exactly as supplied.
	Email string `json:"email"`

	// PasswordHash is the encoded hasher digest. It never leaves the server.
	PasswordHash string `json:"-"`

	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public returns a copy of the user without the password hash.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""

	return &c
}
