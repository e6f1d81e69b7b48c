package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/bookmarks/internal/auth"
	"github.com/patric-chuzhbe/bookmarks/internal/db/storage"
	"github.com/patric-chuzhbe/bookmarks/internal/models"
	"github.com/patric-chuzhbe/bookmarks/internal/ownership"
	"github.com/patric-chuzhbe/bookmarks/internal/user"
)

type usersKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	UpdateUser(ctx context.Context, usr *user.User) error

	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type bookmarksKeeper interface {
	CreateBookmark(ctx context.Context, bookmark *models.Bookmark) (string, error)

	GetUserBookmarks(ctx context.Context, userID string) (models.Bookmarks, error)

	GetUserBookmark(ctx context.Context, userID, bookmarkID string) (*models.Bookmark, error)

	UpdateBookmark(ctx context.Context, bookmark *models.Bookmark) error

	DeleteUserBookmark(ctx context.Context, userID, bookmarkID string) error

	GetNumberOfBookmarks(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storageKeeper interface {
	usersKeeper
	bookmarksKeeper
	pinger
}

// ErrNotFound is returned for bookmarks that do not exist or belong to another user.
var ErrNotFound = ownership.ErrNotFound

// Service holds the user profile and bookmark operations. Every call takes
// the authenticated identity explicitly and never trusts owner ids from input.
type Service struct {
	db storageKeeper
}

func New(db storageKeeper) *Service {
	return &Service{db: db}
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetMe returns the current record of the authenticated user without the password hash.
func (s *Service) GetMe(ctx context.Context, identity *user.User) (*user.User, error) {
	userID, err := ownership.Scope(identity)
	if err != nil {
		return nil, auth.ErrUnauthenticated
	}

	usr, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, auth.ErrUnauthenticated
		}
		return nil, fmt.Errorf("in internal/service/service.go/GetMe(): error while `s.db.GetUserByID()` calling: %w", err)
	}

	return usr.Public(), nil
}

// EditUser applies the non-nil fields of request to the authenticated user.
// Taking an email that belongs to another user yields auth.ErrUserAlreadyExists.
func (s *Service) EditUser(ctx context.Context, identity *user.User, request models.EditUserRequest) (*user.User, error) {
	usr, err := s.GetMe(ctx, identity)
	if err != nil {
		return nil, err
	}

	if request.Email != nil {
		usr.Email = *request.Email
	}
	if request.FirstName != nil {
		usr.FirstName = *request.FirstName
	}
	if request.LastName != nil {
		usr.LastName = *request.LastName
	}

	if err := s.db.UpdateUser(ctx, usr); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			return nil, auth.ErrUserAlreadyExists
		case errors.Is(err, storage.ErrNotFound):
			return nil, auth.ErrUnauthenticated
		}
		return nil, fmt.Errorf("in internal/service/service.go/EditUser(): error while `s.db.UpdateUser()` calling: %w", err)
	}

	return s.GetMe(ctx, identity)
}

// ListBookmarks returns only the bookmarks owned by identity, oldest first.
func (s *Service) ListBookmarks(ctx context.Context, identity *user.User) (models.Bookmarks, error) {
	userID, err := ownership.Scope(identity)
	if err != nil {
		return nil, err
	}

	bookmarks, err := s.db.GetUserBookmarks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/ListBookmarks(): error while `s.db.GetUserBookmarks()` calling: %w", err)
	}
	if bookmarks == nil {
		bookmarks = models.Bookmarks{}
	}

	return bookmarks, nil
}

// GetBookmark reads a bookmark through the owner-scoped store lookup.
// The fetched row is still checked against identity before it is returned.
func (s *Service) GetBookmark(ctx context.Context, identity *user.User, bookmarkID string) (*models.Bookmark, error) {
	userID, err := ownership.Scope(identity)
	if err != nil {
		return nil, err
	}

	bookmark, err := s.db.GetUserBookmark(ctx, userID, bookmarkID)
	found := err == nil
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	if err != nil {
		err = fmt.Errorf("in internal/service/service.go/GetBookmark(): error while `s.db.GetUserBookmark()` calling: %w", err)
	}

	return ownership.Check(identity, bookmark, found, err)
}

// CreateBookmark stores a new bookmark owned by identity.
func (s *Service) CreateBookmark(ctx context.Context, identity *user.User, request models.CreateBookmarkRequest) (*models.Bookmark, error) {
	userID, err := ownership.Scope(identity)
	if err != nil {
		return nil, err
	}

	bookmark := &models.Bookmark{
		UserID:      userID,
		Title:       request.Title,
		Description: request.Description,
		Link:        request.Link,
	}
	bookmarkID, err := s.db.CreateBookmark(ctx, bookmark)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/CreateBookmark(): error while `s.db.CreateBookmark()` calling: %w", err)
	}

	return s.GetBookmark(ctx, identity, bookmarkID)
}

// EditBookmark applies the non-nil fields of request to a bookmark owned by identity.
func (s *Service) EditBookmark(
	ctx context.Context,
	identity *user.User,
	bookmarkID string,
	request models.EditBookmarkRequest,
) (*models.Bookmark, error) {
	bookmark, err := s.GetBookmark(ctx, identity, bookmarkID)
	if err != nil {
		return nil, err
	}

	if request.Title != nil {
		bookmark.Title = *request.Title
	}
	if request.Description != nil {
		bookmark.Description = *request.Description
	}
	if request.Link != nil {
		bookmark.Link = *request.Link
	}

	if err := s.db.UpdateBookmark(ctx, bookmark); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("in internal/service/service.go/EditBookmark(): error while `s.db.UpdateBookmark()` calling: %w", err)
	}

	return s.GetBookmark(ctx, identity, bookmarkID)
}

// DeleteBookmark removes a bookmark owned by identity.
func (s *Service) DeleteBookmark(ctx context.Context, identity *user.User, bookmarkID string) error {
	userID, err := ownership.Scope(identity)
	if err != nil {
		return err
	}

	if err := s.db.DeleteUserBookmark(ctx, userID, bookmarkID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("in internal/service/service.go/DeleteBookmark(): error while `s.db.DeleteUserBookmark()` calling: %w", err)
	}

	return nil
}

// GetInternalStats returns the number of users and bookmarks.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	bookmarks, err := s.db.GetNumberOfBookmarks(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users:     users,
		Bookmarks: bookmarks,
	}, nil
}
