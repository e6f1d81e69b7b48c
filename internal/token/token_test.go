package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueAndVerify(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s, err := New(testSecret, WithClock(fixedClock(issuedAt)))
	require.NoError(t, err)

	tok, err := s.Issue("user-1", "abc@xyz.com")
	require.NoError(t, err)

	claims, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "abc@xyz.com", claims.Email)
	assert.Equal(t, issuedAt, claims.IssuedAt.Time.UTC())
	assert.Equal(t, issuedAt.Add(15*time.Minute), claims.ExpiresAt.Time.UTC())
}

func TestVerifyExpiry(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := New(testSecret, WithClock(fixedClock(issuedAt)))
	require.NoError(t, err)

	tok, err := issuer.Issue("user-1", "abc@xyz.com")
	require.NoError(t, err)

	type tTestCase struct {
		name    string
		at      time.Time
		wantErr error
	}
	testCases := []tTestCase{
		{name: "just issued", at: issuedAt},
		{name: "before expiry", at: issuedAt.Add(TTL - time.Second)},
		{name: "at expiry", at: issuedAt.Add(TTL)},
		{name: "just past expiry", at: issuedAt.Add(TTL + time.Nanosecond), wantErr: ErrTokenExpired},
		{name: "after expiry", at: issuedAt.Add(TTL + time.Hour), wantErr: ErrTokenExpired},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			verifier, err := New(testSecret, WithClock(fixedClock(testCase.at)))
			require.NoError(t, err)

			_, err = verifier.Verify(tok)
			if testCase.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestVerifyTampered(t *testing.T) {
	s, err := New(testSecret)
	require.NoError(t, err)

	tok, err := s.Issue("user-1", "abc@xyz.com")
	require.NoError(t, err)

	for i := range tok {
		replacement := byte('A')
		if tok[i] == 'A' {
			replacement = 'B'
		}
		tampered := tok[:i] + string(replacement) + tok[i+1:]

		_, err := s.Verify(tampered)
		assert.Error(t, err, "byte %d flipped", i)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	s, err := New(testSecret)
	require.NoError(t, err)

	other, err := New([]byte("another-secret"))
	require.NoError(t, err)
	foreign, err := other.Issue("user-1", "abc@xyz.com")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString(testSecret)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	tokens := map[string]string{
		"different secret": foreign,
		"alg none":         unsigned,
		"other algorithm":  hs512,
		"no expiry":        noExpiry,
		"no subject":       noSubject,
		"empty":            "",
		"garbage":          "not.a.jwt",
		"two segments":     strings.Join(strings.Split(foreign, ".")[:2], "."),
	}
	for name, tok := range tokens {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(tok)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
