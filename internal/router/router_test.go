package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bookmarks/internal/auth"
	"github.com/patric-chuzhbe/bookmarks/internal/db/memorystorage"
	"github.com/patric-chuzhbe/bookmarks/internal/db/storage"
	"github.com/patric-chuzhbe/bookmarks/internal/hasher"
	"github.com/patric-chuzhbe/bookmarks/internal/ipchecker"
	"github.com/patric-chuzhbe/bookmarks/internal/logger"
	"github.com/patric-chuzhbe/bookmarks/internal/mockstorage"
	"github.com/patric-chuzhbe/bookmarks/internal/models"
	"github.com/patric-chuzhbe/bookmarks/internal/service"
	"github.com/patric-chuzhbe/bookmarks/internal/token"
)

const trustedSubnet = "10.0.0.0/24"

var jwtPattern = regexp.MustCompile(`^[\w-]+\.[\w-]+\.[\w-]+$`)

type testEnv struct {
	server *httptest.Server
	skew   atomic.Int64
}

type initOption func(*setupOptions)

type setupOptions struct {
	storage storage.Storage
}

func withStorage(db storage.Storage) initOption {
	return func(options *setupOptions) {
		options.storage = db
	}
}

func setupTestRouter(optionsProto ...initOption) (*testEnv, error) {
	options := &setupOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if options.storage == nil {
		db, err := memorystorage.New()
		if err != nil {
			return nil, err
		}
		options.storage = db
	}

	env := &testEnv{}

	tokens, err := token.New([]byte("router-test-secret"), token.WithClock(func() time.Time {
		return time.Now().Add(time.Duration(env.skew.Load()))
	}))
	if err != nil {
		return nil, err
	}

	ipChecker, err := ipchecker.New(trustedSubnet)
	if err != nil {
		return nil, err
	}

	theAuth := auth.New(
		options.storage,
		hasher.New(hasher.WithParams(hasher.Params{Memory: 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32})),
		tokens,
	)

	env.server = httptest.NewServer(New(theAuth, service.New(options.storage), ipChecker).Handler())

	return env, nil
}

func newTestEnv(t *testing.T, optionsProto ...initOption) *testEnv {
	t.Helper()

	require.NoError(t, logger.Init("debug"))

	env, err := setupTestRouter(optionsProto...)
	require.NoError(t, err)
	t.Cleanup(env.server.Close)

	return env
}

func (env *testEnv) signup(t *testing.T, email, password string) string {
	t.Helper()

	var tokenResponse models.TokenResponse
	resp, err := resty.New().R().
		SetBody(models.AuthRequest{Email: email, Password: password}).
		SetResult(&tokenResponse).
		Post(env.server.URL + "/auth/signup")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())

	return tokenResponse.AccessToken
}

func (env *testEnv) request(accessToken string) *resty.Request {
	req := resty.New().R()
	if accessToken != "" {
		req.SetAuthToken(accessToken)
	}
	return req
}

func TestPostAuthsignup(t *testing.T) {
	env := newTestEnv(t)

	type tExpectedResponse struct {
		code    int
		isToken bool
	}
	type tTestCase struct {
		name             string
		body             string
		expectedResponse tExpectedResponse
	}

	testCases := []tTestCase{
		{
			name:             "positive",
			body:             `{"email":"abc@xyz.com","password":"1234"}`,
			expectedResponse: tExpectedResponse{code: http.StatusCreated, isToken: true},
		},
		{
			name:             "duplicate",
			body:             `{"email":"abc@xyz.com","password":"other"}`,
			expectedResponse: tExpectedResponse{code: http.StatusForbidden},
		},
		{
			name:             "invalid_email",
			body:             `{"email":"not-an-email","password":"1234"}`,
			expectedResponse: tExpectedResponse{code: http.StatusBadRequest},
		},
		{
			name:             "missing_password",
			body:             `{"email":"new@xyz.com"}`,
			expectedResponse: tExpectedResponse{code: http.StatusBadRequest},
		},
		{
			name:             "malformed_JSON",
			body:             `{"email":`,
			expectedResponse: tExpectedResponse{code: http.StatusBadRequest},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var tokenResponse models.TokenResponse
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				SetResult(&tokenResponse).
				Post(env.server.URL + "/auth/signup")
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedResponse.code, resp.StatusCode(), resp.String())
			if testCase.expectedResponse.isToken {
				assert.Regexp(t, jwtPattern, tokenResponse.AccessToken)
			}
		})
	}
}

func TestPostAuthsignin(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "abc@xyz.com", "1234")

	var tokenResponse models.TokenResponse
	resp, err := resty.New().R().
		SetBody(models.AuthRequest{Email: "abc@xyz.com", Password: "1234"}).
		SetResult(&tokenResponse).
		Post(env.server.URL + "/auth/signin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Regexp(t, jwtPattern, tokenResponse.AccessToken)

	wrongPassword, err := resty.New().R().
		SetBody(models.AuthRequest{Email: "abc@xyz.com", Password: "12345"}).
		Post(env.server.URL + "/auth/signin")
	require.NoError(t, err)

	unknownEmail, err := resty.New().R().
		SetBody(models.AuthRequest{Email: "nobody@xyz.com", Password: "1234"}).
		Post(env.server.URL + "/auth/signin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, wrongPassword.StatusCode())
	assert.Equal(t, http.StatusForbidden, unknownEmail.StatusCode())
	assert.Equal(t, wrongPassword.String(), unknownEmail.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signup(t, "abc@xyz.com", "1234")

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/users/me"},
		{http.MethodPatch, "/users"},
		{http.MethodGet, "/bookmarks"},
		{http.MethodPost, "/bookmarks"},
		{http.MethodGet, "/bookmarks/some-id"},
		{http.MethodPatch, "/bookmarks/some-id"},
		{http.MethodDelete, "/bookmarks/some-id"},
	}

	sameSecret, err := token.New([]byte("router-test-secret"))
	require.NoError(t, err)
	claims, err := sameSecret.Verify(accessToken)
	require.NoError(t, err)

	otherSecret, err := token.New([]byte("other-secret"))
	require.NoError(t, err)
	foreignToken, err := otherSecret.Issue(claims.Subject, claims.Email)
	require.NoError(t, err)

	tokens := map[string]string{
		"no_token":       "",
		"garbage_token":  "garbage",
		"tampered":       accessToken[:len(accessToken)-2] + "xx",
		"foreign_secret": foreignToken,
	}

	for tokenName, tokenValue := range tokens {
		for _, route := range routes {
			t.Run(fmt.Sprintf("%s %s %s", tokenName, route.method, route.path), func(t *testing.T) {
				req := env.request(tokenValue)
				req.Method = route.method
				req.URL = env.server.URL + route.path
				req.SetHeader("Content-Type", "application/json")
				req.SetBody(`{"title":"t","link":"https://x.io"}`)

				resp, err := req.Send()
				require.NoError(t, err)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
			})
		}
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signup(t, "abc@xyz.com", "1234")

	resp, err := env.request(accessToken).Get(env.server.URL + "/users/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	env.skew.Store(int64(token.TTL + time.Minute))

	resp, err = env.request(accessToken).Get(env.server.URL + "/users/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signup(t, "abc@xyz.com", "1234")
	env.signup(t, "taken@xyz.com", "1234")

	resp, err := env.request(accessToken).Get(env.server.URL + "/users/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body(), &me))
	assert.Equal(t, "abc@xyz.com", me["email"])
	assert.NotContains(t, me, "passwordHash")
	assert.NotContains(t, me, "PasswordHash")

	resp, err = env.request(accessToken).
		SetBody(map[string]string{"firstName": "Abc"}).
		Patch(env.server.URL + "/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), `"firstName":"Abc"`)

	resp, err = env.request(accessToken).
		SetBody(map[string]string{"email": "taken@xyz.com"}).
		Patch(env.server.URL + "/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	resp, err = env.request(accessToken).
		SetBody(map[string]string{"email": "broken"}).
		Patch(env.server.URL + "/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestBookmarksOwnership(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.signup(t, "alice@xyz.com", "1234")
	bobToken := env.signup(t, "bob@xyz.com", "1234")

	var emptyList models.Bookmarks
	resp, err := env.request(aliceToken).SetResult(&emptyList).Get(env.server.URL + "/bookmarks")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `[]`, resp.String())

	var created models.Bookmark
	resp, err = env.request(bobToken).
		SetBody(map[string]string{
			"title":  "Bob's",
			"link":   "https://bob.example",
			"userId": "someone-else",
		}).
		SetResult(&created).
		Post(env.server.URL + "/bookmarks")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())
	assert.NotEqual(t, "someone-else", created.UserID)

	var bobsMe map[string]interface{}
	resp, err = env.request(bobToken).Get(env.server.URL + "/users/me")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(resp.Body(), &bobsMe))
	assert.Equal(t, bobsMe["id"], created.UserID)

	bookmarkURL := env.server.URL + "/bookmarks/" + created.ID

	resp, err = env.request(aliceToken).Get(bookmarkURL)
	require.NoError(t, err)
	foreignBody := resp.String()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = env.request(aliceToken).Get(env.server.URL + "/bookmarks/does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Equal(t, resp.String(), foreignBody)

	resp, err = env.request(aliceToken).SetBody(map[string]string{"title": "stolen"}).Patch(bookmarkURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = env.request(aliceToken).Delete(bookmarkURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	var aliceList models.Bookmarks
	_, err = env.request(aliceToken).SetResult(&aliceList).Get(env.server.URL + "/bookmarks")
	require.NoError(t, err)
	assert.Empty(t, aliceList)

	var edited models.Bookmark
	resp, err = env.request(bobToken).
		SetBody(map[string]string{"description": "mine"}).
		SetResult(&edited).
		Patch(bookmarkURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Bob's", edited.Title)
	assert.Equal(t, "mine", edited.Description)

	resp, err = env.request(bobToken).Delete(bookmarkURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())

	resp, err = env.request(bobToken).Get(bookmarkURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestPostBookmarksValidation(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signup(t, "abc@xyz.com", "1234")

	testCases := []struct {
		name string
		body string
	}{
		{name: "missing_title", body: `{"link":"https://x.io"}`},
		{name: "missing_link", body: `{"title":"t"}`},
		{name: "bad_link", body: `{"title":"t","link":"not a url"}`},
		{name: "empty_body", body: ``},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := env.request(accessToken).
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Post(env.server.URL + "/bookmarks")
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		})
	}
}

func TestGetInternalstats(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signup(t, "abc@xyz.com", "1234")

	_, err := env.request(accessToken).
		SetBody(models.CreateBookmarkRequest{Title: "Go", Link: "https://go.dev"}).
		Post(env.server.URL + "/bookmarks")
	require.NoError(t, err)

	resp, err := resty.New().R().Get(env.server.URL + "/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	var stats models.InternalStatsResponse
	resp, err = resty.New().R().
		SetHeader("X-Real-IP", "10.0.0.10").
		SetResult(&stats).
		Get(env.server.URL + "/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, models.InternalStatsResponse{Users: 1, Bookmarks: 1}, stats)
}

func TestGetPing(t *testing.T) {
	env := newTestEnv(t)

	resp, err := resty.New().R().Get(env.server.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	m := &mockstorage.StorageMock{}
	m.On("Ping", mock.Anything).Return(errors.New("connection refused"))
	failing := newTestEnv(t, withStorage(m))

	resp, err = resty.New().R().Get(failing.server.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	m.AssertExpectations(t)
}

func TestStoreFailureIsInternalError(t *testing.T) {
	m := &mockstorage.StorageMock{}
	m.On("GetUserByEmail", mock.Anything, "abc@xyz.com").Return(nil, errors.New("connection refused"))
	env := newTestEnv(t, withStorage(m))

	resp, err := resty.New().R().
		SetBody(models.AuthRequest{Email: "abc@xyz.com", Password: "1234"}).
		Post(env.server.URL + "/auth/signin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.NotContains(t, resp.String(), "connection refused")
}

func TestGzipRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write([]byte(`{"email":"gz@xyz.com","password":"1234"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var tokenResponse models.TokenResponse
	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Content-Encoding", "gzip").
		SetHeader("Accept-Encoding", "gzip").
		SetBody(compressed.Bytes()).
		SetResult(&tokenResponse).
		Post(env.server.URL + "/auth/signup")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())
	assert.Regexp(t, jwtPattern, tokenResponse.AccessToken)
}

func TestSignupThenUseTokenConcurrently(t *testing.T) {
	env := newTestEnv(t)
	accessToken := env.signup(t, "abc@xyz.com", "1234")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errs := make(chan error, 8)
	for i := 0; i < cap(errs); i++ {
		go func(i int) {
			resp, err := env.request(accessToken).
				SetContext(ctx).
				SetBody(models.CreateBookmarkRequest{Title: fmt.Sprintf("b%d", i), Link: "https://x.io"}).
				Post(env.server.URL + "/bookmarks")
			if err == nil && resp.StatusCode() != http.StatusCreated {
				err = fmt.Errorf("unexpected status %d", resp.StatusCode())
			}
			errs <- err
		}(i)
	}
	for i := 0; i < cap(errs); i++ {
		assert.NoError(t, <-errs)
	}

	var list models.Bookmarks
	_, err := env.request(accessToken).SetResult(&list).Get(env.server.URL + "/bookmarks")
	require.NoError(t, err)
	assert.Len(t, list, cap(errs))
}
