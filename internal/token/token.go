// Package token issues and verifies signed, time-limited session tokens.
// Tokens are HS256 JWTs carrying the user ID as the subject and the email
// as a private claim. They are stateless and cannot be revoked.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TTL is the lifetime of every issued token.
const TTL = 15 * time.Minute

var (
	// ErrTokenInvalid covers bad signatures, malformed tokens and unexpected algorithms.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrEmptySecret is returned by New when no signing secret is configured.
	ErrEmptySecret = errors.New("token signing secret is empty")
)

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds the user's email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Service signs and verifies tokens with a single process-wide secret.
type Service struct {
	secret []byte
	now    func() time.Time
}

// InitOption configures a Service.
type InitOption func(*Service)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) InitOption {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a token Service. The secret is copied and never changes afterwards.
func New(secret []byte, optionsProto ...InitOption) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	s := &Service{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(s)
	}

	return s, nil
}

// Issue returns a signed token for the given subject and email that expires after TTL.
func (s *Service) Issue(subject, email string) (string, error) {
	issuedAt := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(TTL)),
		},
		Email: email,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("in internal/token/token.go/Issue(): error while `SignedString()` calling: %w", err)
	}

	return tokenString, nil
}

// validationTime is s.now moved back by the smallest step. jwt rejects a token
// once now reaches exp, while a token here expires only after now passes exp.
func (s *Service) validationTime() time.Time {
	return s.now().Add(-time.Nanosecond)
}

// Verify checks the signature and expiry of tokenString and returns its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.validationTime),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
