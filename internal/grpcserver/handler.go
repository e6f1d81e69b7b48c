package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/patric-chuzhbe/bookmarks/internal/auth"
	"github.com/patric-chuzhbe/bookmarks/internal/logger"
	"github.com/patric-chuzhbe/bookmarks/internal/models"
	"github.com/patric-chuzhbe/bookmarks/internal/ownership"
	"github.com/patric-chuzhbe/bookmarks/internal/user"
)

type credentialsChecker interface {
	Signup(ctx context.Context, email, password string) (string, error)

	Signin(ctx context.Context, email, password string) (string, error)
}

type bookmarksService interface {
	GetMe(ctx context.Context, identity *user.User) (*user.User, error)

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

type bookmarkIDRequest struct {
	ID string `json:"id" validate:"required"`
}

type BookmarksHandler struct {
	auth     credentialsChecker
	svc      bookmarksService
	validate *validator.Validate
}

func NewBookmarksHandler(theAuth credentialsChecker, svc bookmarksService) *BookmarksHandler {
	return &BookmarksHandler{
		auth:     theAuth,
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *BookmarksHandler) Signup(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var request models.AuthRequest
	if err := h.decode(in, &request); err != nil {
		return nil, toStatus(err)
	}

	accessToken, err := h.auth.Signup(ctx, request.Email, request.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(models.TokenResponse{AccessToken: accessToken})
}

func (h *BookmarksHandler) Signin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var request models.AuthRequest
	if err := h.decode(in, &request); err != nil {
		return nil, toStatus(err)
	}

	accessToken, err := h.auth.Signin(ctx, request.Email, request.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(models.TokenResponse{AccessToken: accessToken})
}

func (h *BookmarksHandler) GetMe(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	identity, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
	}

	me, err := h.svc.GetMe(ctx, identity)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(me)
}

func (h *BookmarksHandler) ListBookmarks(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	identity, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
	}

	bookmarks, err := h.svc.ListBookmarks(ctx, identity)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(map[string]interface{}{"bookmarks": bookmarks})
}

func (h *BookmarksHandler) GetBookmark(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	identity, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
	}

	var request bookmarkIDRequest
	if err := h.decode(in, &request); err != nil {
		return nil, toStatus(err)
	}

	bookmark, err := h.svc.GetBookmark(ctx, identity, request.ID)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(bookmark)
}

func (h *BookmarksHandler) CreateBookmark(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	identity, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
	}

	var request models.CreateBookmarkRequest
	if err := h.decode(in, &request); err != nil {
		return nil, toStatus(err)
	}

	bookmark, err := h.svc.CreateBookmark(ctx, identity, request)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(bookmark)
}

func (h *BookmarksHandler) EditBookmark(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	identity, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
	}

	var target bookmarkIDRequest
	if err := h.decode(in, &target); err != nil {
		return nil, toStatus(err)
	}
	var request models.EditBookmarkRequest
	if err := h.decode(in, &request); err != nil {
		return nil, toStatus(err)
	}

	bookmark, err := h.svc.EditBookmark(ctx, identity, target.ID, request)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(bookmark)
}

func (h *BookmarksHandler) DeleteBookmark(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	identity, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
	}

	var request bookmarkIDRequest
	if err := h.decode(in, &request); err != nil {
		return nil, toStatus(err)
	}

	if err := h.svc.DeleteBookmark(ctx, identity, request.ID); err != nil {
		return nil, toStatus(err)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// decode maps a Struct onto dst through its JSON form and validates the result.
func (h *BookmarksHandler) decode(in *structpb.Struct, dst interface{}) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}

	return h.validate.Struct(dst)
}

func encode(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}

	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}

	return out, nil
}

func toStatus(err error) error {
	var validationErrors validator.ValidationErrors

	switch {
	case errors.As(err, &validationErrors), errors.Is(err, models.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, auth.ErrUserAlreadyExists), errors.Is(err, auth.ErrInvalidCredentials):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ownership.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		logger.Log.Errorln("gRPC call failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}
