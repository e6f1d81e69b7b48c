// Package jsondb keeps users and bookmarks in memory and persists them
// to a JSON file when the storage is closed.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/bookmarks/internal/db/storage"
	"github.com/patric-chuzhbe/bookmarks/internal/models"
	"github.com/patric-chuzhbe/bookmarks/internal/user"
)

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// UserRecord is the on-disk form of a user. Unlike user.User it keeps the password hash.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *UserRecord) toUser() *user.User {
	return &user.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type CacheStruct struct {
	Users        map[string]*UserRecord
	EmailToUser  map[string]string
	Bookmarks    map[string]*models.Bookmark
	BookmarksSeq []string
}

// NewCache returns an empty, ready to use cache.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:        map[string]*UserRecord{},
		EmailToUser:  map[string]string{},
		Bookmarks:    map[string]*models.Bookmark{},
		BookmarksSeq: []string{},
	}
}

func (c *CacheStruct) fillNilMaps() {
	if c.Users == nil {
		c.Users = map[string]*UserRecord{}
	}
	if c.EmailToUser == nil {
		c.EmailToUser = map[string]string{}
	}
	if c.Bookmarks == nil {
		c.Bookmarks = map[string]*models.Bookmark{}
	}
	if c.BookmarksSeq == nil {
		c.BookmarksSeq = []string{}
	}
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New loads fileName if it exists and creates it with an empty cache otherwise.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
		}
		if err := writeToJSONFile(fileName, db.Cache); err != nil {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `writeToJSONFile()` calling: %w", err)
		}
	}
	db.Cache.fillNilMaps()

	return db, nil
}

// NewInMemory returns a JSONDB that is never written to disk.
func NewInMemory() *JSONDB {
	return &JSONDB{Cache: NewCache()}
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.EmailToUser[usr.Email]; exists {
		return "", storage.ErrDuplicate
	}

	now := time.Now().UTC()
	stored := &UserRecord{
		ID:           uuid.NewString(),
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	db.Cache.Users[stored.ID] = stored
	db.Cache.EmailToUser[stored.Email] = stored.ID

	return stored.ID, nil
}

func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	userID, found := db.Cache.EmailToUser[email]
	if !found {
		return nil, storage.ErrNotFound
	}

	return copyUser(db.Cache.Users[userID])
}

func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return copyUser(db.Cache.Users[userID])
}

func (db *JSONDB) UpdateUser(ctx context.Context, usr *user.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, found := db.Cache.Users[usr.ID]
	if !found {
		return storage.ErrNotFound
	}

	if usr.Email != stored.Email {
		if _, taken := db.Cache.EmailToUser[usr.Email]; taken {
			return storage.ErrDuplicate
		}
		delete(db.Cache.EmailToUser, stored.Email)
		db.Cache.EmailToUser[usr.Email] = usr.ID
	}

	stored.Email = usr.Email
	stored.FirstName = usr.FirstName
	stored.LastName = usr.LastName
	stored.UpdatedAt = time.Now().UTC()

	return nil
}

func (db *JSONDB) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Users[bookmark.UserID]; !found {
		return "", storage.ErrNotFound
	}

	now := time.Now().UTC()
	stored := *bookmark
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	db.Cache.Bookmarks[stored.ID] = &stored
	db.Cache.BookmarksSeq = append(db.Cache.BookmarksSeq, stored.ID)

	return stored.ID, nil
}

func (db *JSONDB) GetUserBookmarks(ctx context.Context, userID string) (models.Bookmarks, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	owned := funk.Filter(db.Cache.BookmarksSeq, func(bookmarkID string) bool {
		bookmark, found := db.Cache.Bookmarks[bookmarkID]
		return found && bookmark.UserID == userID
	}).([]string)

	result := make(models.Bookmarks, 0, len(owned))
	for _, bookmarkID := range owned {
		bookmark := *db.Cache.Bookmarks[bookmarkID]
		result = append(result, &bookmark)
	}

	return result, nil
}

func (db *JSONDB) GetUserBookmark(ctx context.Context, userID, bookmarkID string) (*models.Bookmark, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, found := db.Cache.Bookmarks[bookmarkID]
	if !found || stored.UserID != userID {
		return nil, storage.ErrNotFound
	}
	bookmark := *stored

	return &bookmark, nil
}

func (db *JSONDB) UpdateBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, found := db.Cache.Bookmarks[bookmark.ID]
	if !found || stored.UserID != bookmark.UserID {
		return storage.ErrNotFound
	}

	stored.Title = bookmark.Title
	stored.Description = bookmark.Description
	stored.Link = bookmark.Link
	stored.UpdatedAt = time.Now().UTC()
	bookmark.UpdatedAt = stored.UpdatedAt

	return nil
}

func (db *JSONDB) DeleteUserBookmark(ctx context.Context, userID, bookmarkID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, found := db.Cache.Bookmarks[bookmarkID]
	if !found || stored.UserID != userID {
		return storage.ErrNotFound
	}

	delete(db.Cache.Bookmarks, bookmarkID)
	db.Cache.BookmarksSeq = funk.FilterString(db.Cache.BookmarksSeq, func(id string) bool {
		return id != bookmarkID
	})

	return nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) GetNumberOfBookmarks(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Bookmarks)), nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close writes the cache to the backing file. In-memory instances have nothing to flush.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func copyUser(stored *UserRecord) (*user.User, error) {
	if stored == nil {
		return nil, storage.ErrNotFound
	}

	return stored.toUser(), nil
}
