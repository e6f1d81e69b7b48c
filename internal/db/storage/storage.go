// Package storage declares the contract shared by every storage backend
// and the sentinel errors they return.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/bookmarks/internal/models"
	"github.com/patric-chuzhbe/bookmarks/internal/user"
)

var (
	// ErrDuplicate is returned by CreateUser and UpdateUser when the email is already taken.
	ErrDuplicate = errors.New("duplicate key")

	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Storage is implemented by postgresdb, jsondb and memorystorage.
// UpdateBookmark and DeleteUserBookmark only touch rows whose owner matches
// and report ErrNotFound otherwise.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	UpdateUser(ctx context.Context, usr *user.User) error

	CreateBookmark(ctx context.Context, bookmark *models.Bookmark) (string, error)

	GetUserBookmarks(ctx context.Context, userID string) (models.Bookmarks, error)

	GetUserBookmark(ctx context.Context, userID, bookmarkID string) (*models.Bookmark, error)

	UpdateBookmark(ctx context.Context, bookmark *models.Bookmark) error

	DeleteUserBookmark(ctx context.Context, userID, bookmarkID string) error

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfBookmarks(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
