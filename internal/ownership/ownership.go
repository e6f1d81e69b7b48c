// Package ownership restricts access to owned resources to the identity that created them.
//
// A resource that exists but belongs to someone else is reported exactly like
// a missing one, so callers never learn whether another user's ID is taken.
package ownership

import (
	"errors"

	"github.com/patric-chuzhbe/bookmarks/internal/user"
)

// ErrNotFound is returned both for missing resources and for resources owned by another user.
var ErrNotFound = errors.New("resource not found")

// Owned is implemented by every resource that has a single owner.
type Owned interface {
	OwnerID() string
}

// Authorize reports whether identity owns resource.
// A nil identity or resource is never authorized.
func Authorize(identity *user.User, resource Owned) bool {
	if identity == nil || identity.ID == "" || resource == nil {
		return false
	}

	return resource.OwnerID() == identity.ID
}

// Scope returns the owner ID every read or write on behalf of identity is narrowed to.
func Scope(identity *user.User) (string, error) {
	if identity == nil || identity.ID == "" {
		return "", ErrNotFound
	}

	return identity.ID, nil
}

// Check passes a fetched resource through when identity owns it and turns
// any other outcome into ErrNotFound. Non-lookup errors are returned as is.
func Check[T Owned](identity *user.User, resource T, found bool, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if !found || !Authorize(identity, resource) {
		return zero, ErrNotFound
	}

	return resource, nil
}
