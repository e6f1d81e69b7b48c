// Package mockstorage provides a testify-based mock of storage.Storage
// for handler and service tests that need to simulate storage failures.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/bookmarks/internal/models"
	"github.com/patric-chuzhbe/bookmarks/internal/user"
)

// StorageMock implements storage.Storage through testify's mock.Mock.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers, when set, replaces the generic mock handler for GetNumberOfUsers.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfBookmarks, when set, replaces the generic mock handler for GetNumberOfBookmarks.
	OnGetNumberOfBookmarks func(ctx context.Context) (int64, error)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	args := m.Called(ctx, usr)
	return args.String(0), args.Error(1)
}

func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) UpdateUser(ctx context.Context, usr *user.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

func (m *StorageMock) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) (string, error) {
	args := m.Called(ctx, bookmark)
	return args.String(0), args.Error(1)
}

func (m *StorageMock) GetUserBookmarks(ctx context.Context, userID string) (models.Bookmarks, error) {
	args := m.Called(ctx, userID)
	bookmarks, _ := args.Get(0).(models.Bookmarks)
	return bookmarks, args.Error(1)
}

func (m *StorageMock) GetUserBookmark(ctx context.Context, userID, bookmarkID string) (*models.Bookmark, error) {
	args := m.Called(ctx, userID, bookmarkID)
	bookmark, _ := args.Get(0).(*models.Bookmark)
	return bookmark, args.Error(1)
}

func (m *StorageMock) UpdateBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	args := m.Called(ctx, bookmark)
	return args.Error(0)
}

func (m *StorageMock) DeleteUserBookmark(ctx context.Context, userID, bookmarkID string) error {
	args := m.Called(ctx, userID, bookmarkID)
	return args.Error(0)
}

func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) GetNumberOfBookmarks(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfBookmarks != nil {
		return m.OnGetNumberOfBookmarks(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
