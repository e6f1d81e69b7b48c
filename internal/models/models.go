package models

import (
	"errors"
	"time"
)

// AuthRequest is the body of the signup and signin requests.
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a freshly issued session token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// EditUserRequest is a partial profile update. Nil fields stay unchanged.
type EditUserRequest struct {
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=255"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=255"`
}

// Bookmark is a link saved by a user. UserID is always taken from the
// authenticated identity, never from client input.
type Bookmark struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Link        string    `json:"link"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OwnerID returns the ID of the user the bookmark belongs to.
func (b *Bookmark) OwnerID() string {
	if b == nil {
		return ""
	}
	return b.UserID
}

type Bookmarks []*Bookmark

// CreateBookmarkRequest has no owner field. The owner comes from the identity.
type CreateBookmarkRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description,omitempty" validate:"max=1024"`
	Link        string `json:"link" validate:"required,url"`
}

// EditBookmarkRequest is a partial bookmark update. Nil fields stay unchanged.
type EditBookmarkRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1024"`
	Link        *string `json:"link,omitempty" validate:"omitempty,url"`
}

// InternalStatsResponse is returned by the trusted-subnet stats endpoint.
type InternalStatsResponse struct {
	Users     int64 `json:"users"`
	Bookmarks int64 `json:"bookmarks"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// ErrInvalidRequest marks a request body that could not be decoded.
var ErrInvalidRequest = errors.New("invalid request body")
