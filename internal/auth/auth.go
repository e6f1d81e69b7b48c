// Package auth implements signup, signin and the access guard that
// authenticates every protected request with a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/bookmarks/internal/db/storage"
	"github.com/patric-chuzhbe/bookmarks/internal/logger"
	"github.com/patric-chuzhbe/bookmarks/internal/token"
	"github.com/patric-chuzhbe/bookmarks/internal/user"
)

var (
	// ErrUserAlreadyExists is returned by Signup when the email is taken.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredentials is returned by Signin for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated is returned by the access guard for a missing, invalid
	// or expired token, and for a token whose user no longer exists.
	ErrUnauthenticated = errors.New("unauthenticated")
)

const (
	bearerScheme = "Bearer"

	// dummyPassword is hashed once so that signin for an unknown email costs
	// the same Verify as a wrong password.
	dummyPassword = "bookmarks-dummy-password"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) (bool, error)
}

type tokenService interface {
	Issue(subject, email string) (string, error)
	Verify(tokenString string) (*token.Claims, error)
}

// Service is stateless between calls and safe for concurrent use.
type Service struct {
	db          userKeeper
	hasher      passwordHasher
	tokens      tokenService
	dummyDigest string
}

// New creates an auth Service.
func New(db userKeeper, hasher passwordHasher, tokens tokenService) *Service {
	dummyDigest, err := hasher.Hash(dummyPassword)
	if err != nil {
		logger.Log.Warnln("dummy digest is not available, unknown emails will skip hashing:", zap.Error(err))
	}

	return &Service{
		db:          db,
		hasher:      hasher,
		tokens:      tokens,
		dummyDigest: dummyDigest,
	}
}

type contextKey struct{}

var userKey = contextKey{}

// WithUser returns a copy of ctx carrying the authenticated identity.
func WithUser(ctx context.Context, usr *user.User) context.Context {
	return context.WithValue(ctx, userKey, usr)
}

// UserFromContext returns the identity attached by the access guard.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	usr, ok := ctx.Value(userKey).(*user.User)
	return usr, ok && usr != nil
}

// Signup registers a new user and returns a session token for it.
// The input is expected to be validated by the caller.
func (s *Service) Signup(ctx context.Context, email, password string) (string, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/Signup(): error while `s.hasher.Hash()` calling: %w", err)
	}

	userID, err := s.db.CreateUser(ctx, &user.User{
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return "", ErrUserAlreadyExists
		}
		return "", fmt.Errorf("in internal/auth/auth.go/Signup(): error while `s.db.CreateUser()` calling: %w", err)
	}

	return s.issue(userID, email)
}

// Signin checks the credentials and returns a session token.
func (s *Service) Signin(ctx context.Context, email, password string) (string, error) {
	usr, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.burnVerify(password)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("in internal/auth/auth.go/Signin(): error while `s.db.GetUserByEmail()` calling: %w", err)
	}

	matches, err := s.hasher.Verify(usr.PasswordHash, password)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/Signin(): error while `s.hasher.Verify()` calling: %w", err)
	}
	if !matches {
		return "", ErrInvalidCredentials
	}

	return s.issue(usr.ID, usr.Email)
}

// Authenticate verifies a raw token and resolves it to the current user record.
// Any token problem and a vanished user both yield ErrUnauthenticated;
// other storage failures are returned wrapped.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*user.User, error) {
	if rawToken == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		logger.Log.Debugln("token rejected:", zap.Error(err))
		return nil, ErrUnauthenticated
	}

	usr, err := s.db.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Log.Debugln("token subject no longer exists", "subject", claims.Subject)
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("in internal/auth/auth.go/Authenticate(): error while `s.db.GetUserByID()` calling: %w", err)
	}

	return usr.Public(), nil
}

// BearerToken extracts the token from an Authorization header value.
// Anything but "Bearer <token>" yields ErrUnauthenticated.
func BearerToken(header string) (string, error) {
	scheme, rawToken, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", ErrUnauthenticated
	}

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return "", ErrUnauthenticated
	}

	return rawToken, nil
}

// AuthenticateUser is an HTTP middleware guarding protected routes.
// It rejects the request with 401 before the wrapped handler runs unless the
// bearer token is valid and its user exists, and otherwise stores the user in
// the request context.
func (s *Service) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		rawToken, err := BearerToken(request.Header.Get("Authorization"))
		if err != nil {
			writeUnauthenticated(response)
			return
		}

		usr, err := s.Authenticate(request.Context(), rawToken)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				writeUnauthenticated(response)
				return
			}
			logger.Log.Errorln("Error calling the `s.Authenticate()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		logger.SetAccessUser(request.Context(), usr.ID)

		h.ServeHTTP(response, request.WithContext(WithUser(request.Context(), usr)))
	}

	return http.HandlerFunc(middleware)
}

func (s *Service) burnVerify(password string) {
	if s.dummyDigest == "" {
		return
	}
	if _, err := s.hasher.Verify(s.dummyDigest, password); err != nil {
		logger.Log.Debugln("dummy verify failed:", zap.Error(err))
	}
}

func (s *Service) issue(userID, email string) (string, error) {
	tokenString, err := s.tokens.Issue(userID, email)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/issue(): error while `s.tokens.Issue()` calling: %w", err)
	}

	return tokenString, nil
}

func writeUnauthenticated(response http.ResponseWriter) {
	response.Header().Set("WWW-Authenticate", bearerScheme)
	http.Error(response, ErrUnauthenticated.Error(), http.StatusUnauthorized)
}
