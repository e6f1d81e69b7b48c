package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/bookmarks/internal/auth"
	"github.com/patric-chuzhbe/bookmarks/internal/gzippedhttp"
	"github.com/patric-chuzhbe/bookmarks/internal/logger"
	"github.com/patric-chuzhbe/bookmarks/internal/models"
	"github.com/patric-chuzhbe/bookmarks/internal/ownership"
	"github.com/patric-chuzhbe/bookmarks/internal/user"
)

const maxRequestBodySize = 1 << 20

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler

	Signup(ctx context.Context, email, password string) (string, error)

	Signin(ctx context.Context, email, password string) (string, error)
}

type usersService interface {
	GetMe(ctx context.Context, identity *user.User) (*user.User, error)

	EditUser(ctx context.Context, identity *user.User, request models.EditUserRequest) (*user.User, error)
}

type bookmarksService interface {
	ListBookmarks(ctx context.Context, identity *user.User) (models.Bookmarks, error)

	GetBookmark(ctx context.Context, identity *user.User, bookmarkID string) (*models.Bookmark, error)

	CreateBookmark(ctx context.Context, identity *user.User, request models.CreateBookmarkRequest) (*models.Bookmark, error)

	EditBookmark(
		ctx context.Context,
		identity *user.User,
		bookmarkID string,
		request models.EditBookmarkRequest,
	) (*models.Bookmark, error)

	DeleteBookmark(ctx context.Context, identity *user.User, bookmarkID string) error
}

type appService interface {
	usersService
	bookmarksService

	Ping(ctx context.Context) error

	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
}

type subnetGuard interface {
	TrustedSubnetOnly(h http.Handler) http.Handler
}

// Router holds the HTTP handlers of the bookmarks API.
type Router struct {
	auth       authenticator
	service    appService
	ipChecker  subnetGuard
	validate   *validator.Validate
	enableGzip bool
}

type InitOption func(*initOptions)

type initOptions struct {
	enableGzip bool
}

func WithGzip(enableGzip bool) InitOption {
	return func(options *initOptions) {
		options.enableGzip = enableGzip
	}
}

func New(
	theAuth authenticator,
	service appService,
	ipChecker subnetGuard,
	optionsProto ...InitOption,
) *Router {
	options := &initOptions{
		enableGzip: true,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	return &Router{
		auth:       theAuth,
		service:    service,
		ipChecker:  ipChecker,
		validate:   validator.New(),
		enableGzip: options.enableGzip,
	}
}

// Handler builds the chi mux with every route of the API. Routes under
// /users and /bookmarks require a bearer token.
func (r *Router) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
	)
	if r.enableGzip {
		router.Use(
			gzippedhttp.UngzipRequest,
			gzippedhttp.GzipResponse,
		)
	}

	router.Get(`/ping`, r.GetPing)

	router.Post(`/auth/signup`, r.PostAuthsignup)
	router.Post(`/auth/signin`, r.PostAuthsignin)

	router.Group(func(protected chi.Router) {
		protected.Use(r.auth.AuthenticateUser)

		protected.Get(`/users/me`, r.GetUsersme)
		protected.Patch(`/users`, r.PatchUsers)

		protected.Route(`/bookmarks`, func(bookmarks chi.Router) {
			bookmarks.Get(`/`, r.GetBookmarks)
			bookmarks.Post(`/`, r.PostBookmarks)
			bookmarks.Get(`/{id}`, r.GetBookmarksID)
			bookmarks.Patch(`/{id}`, r.PatchBookmarksID)
			bookmarks.Delete(`/{id}`, r.DeleteBookmarksID)
		})
	})

	router.With(r.ipChecker.TrustedSubnetOnly).Get(`/internal/stats`, r.GetInternalstats)

	return router
}

func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.service.Ping(request.Context()); err != nil {
		logger.Log.Errorln("Error calling the `r.service.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (r *Router) PostAuthsignup(response http.ResponseWriter, request *http.Request) {
	var requestDTO models.AuthRequest
	if err := r.decodeRequest(response, request, &requestDTO); err != nil {
		r.writeError(response, err)
		return
	}

	accessToken, err := r.auth.Signup(request.Context(), requestDTO.Email, requestDTO.Password)
	if err != nil {
		r.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.TokenResponse{AccessToken: accessToken})
}

func (r *Router) PostAuthsignin(response http.ResponseWriter, request *http.Request) {
	var requestDTO models.AuthRequest
	if err := r.decodeRequest(response, request, &requestDTO); err != nil {
		r.writeError(response, err)
		return
	}

	accessToken, err := r.auth.Signin(request.Context(), requestDTO.Email, requestDTO.Password)
	if err != nil {
		r.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.TokenResponse{AccessToken: accessToken})
}

func (r *Router) GetUsersme(response http.ResponseWriter, request *http.Request) {
	identity, ok := auth.UserFromContext(request.Context())
	if !ok {
		r.writeError(response, auth.ErrUnauthenticated)
		return
	}

	me, err := r.service.GetMe(request.Context(), identity)
	if err != nil {
		r.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, me)
}

func (r *Router) PatchUsers(response http.ResponseWriter, request *http.Request) {
	identity, ok := auth.UserFromContext(request.Context())
	if !ok {
		r.writeError(response, auth.ErrUnauthenticated)
		return
	}

	var requestDTO models.EditUserRequest
	if err := r.decodeRequest(response, request, &requestDTO); err != nil {
		r.writeError(response, err)
		return
	}

	updated, err := r.service.EditUser(request.Context(), identity, requestDTO)
	if err != nil {
		r.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, updated)
}

func (r *Router) GetBookmarks(response http.ResponseWriter, request *http.Request) {
	identity, ok := auth.UserFromContext(request.Context())
	if !ok {
		r.writeError(response, auth.ErrUnauthenticated)
		return
	}

	bookmarks, err := r.service.ListBookmarks(request.Context(), identity)
	if err != nil {
		r.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, bookmarks)
}

func (r *Router) PostBookmarks(response http.ResponseWriter, request *http.Request) {
	identity, ok := auth.UserFromContext(request.Context())
	if !ok {
		r.writeError(response, auth.ErrUnauthenticated)
		return
	}

	var requestDTO models.CreateBookmarkRequest
	if err := r.decodeRequest(response, request, &requestDTO); err != nil {
		r.writeError(response, err)
		return
	}

	bookmark, err := r.service.CreateBookmark(request.Context(), identity, requestDTO)
	if err != nil {
		r.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, bookmark)
}

func (r *Router) GetBookmarksID(response http.ResponseWriter, request *http.Request) {
	identity, ok := auth.UserFromContext(request.Context())
	if !ok {
		r.writeError(response, auth.ErrUnauthenticated)
		return
	}

	bookmark, err := r.service.GetBookmark(request.Context(), identity, chi.URLParam(request, "id"))
	if err != nil {
		r.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, bookmark)
}

func (r *Router) PatchBookmarksID(response http.ResponseWriter, request *http.Request) {
	identity, ok := auth.UserFromContext(request.Context())
	if !ok {
		r.writeError(response, auth.ErrUnauthenticated)
		return
	}

	var requestDTO models.EditBookmarkRequest
	if err := r.decodeRequest(response, request, &requestDTO); err != nil {
		r.writeError(response, err)
		return
	}

	bookmark, err := r.service.EditBookmark(request.Context(), identity, chi.URLParam(request, "id"), requestDTO)
	if err != nil {
		r.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, bookmark)
}

func (r *Router) DeleteBookmarksID(response http.ResponseWriter, request *http.Request) {
	identity, ok := auth.UserFromContext(request.Context())
	if !ok {
		r.writeError(response, auth.ErrUnauthenticated)
		return
	}

	if err := r.service.DeleteBookmark(request.Context(), identity, chi.URLParam(request, "id")); err != nil {
		r.writeError(response, err)
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

func (r *Router) GetInternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := r.service.GetInternalStats(request.Context())
	if err != nil {
		r.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

// decodeRequest reads a JSON body into dst and validates it.
// Unknown fields are ignored, so an owner id sent by the client never reaches the service.
func (r *Router) decodeRequest(response http.ResponseWriter, request *http.Request, dst interface{}) error {
	request.Body = http.MaxBytesReader(response, request.Body, maxRequestBodySize)

	if err := json.NewDecoder(request.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}

	return r.validate.Struct(dst)
}

func (r *Router) writeError(response http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors

	switch {
	case errors.As(err, &validationErrors), errors.Is(err, models.ErrInvalidRequest):
		http.Error(response, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrUserAlreadyExists), errors.Is(err, auth.ErrInvalidCredentials):
		http.Error(response, err.Error(), http.StatusForbidden)
	case errors.Is(err, auth.ErrUnauthenticated):
		response.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(response, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, ownership.ErrNotFound):
		http.Error(response, err.Error(), http.StatusNotFound)
	default:
		logger.Log.Errorln("request failed", zap.Error(err))
		http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeJSON(response http.ResponseWriter, status int, body interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)

	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Errorln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}
