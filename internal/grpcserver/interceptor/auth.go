package interceptor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/bookmarks/internal/auth"
	"github.com/patric-chuzhbe/bookmarks/internal/logger"
	"github.com/patric-chuzhbe/bookmarks/internal/user"
)

type authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*user.User, error)
}

type AuthInterceptor struct {
	auth authenticator
}

func NewAuthInterceptor(auth authenticator) *AuthInterceptor {
	return &AuthInterceptor{auth: auth}
}

// UnaryAuthInterceptor lets publicMethods through and guards everything else:
// the call is rejected with Unauthenticated before the handler runs unless the
// "authorization" metadata carries a valid bearer token of an existing user.
func (a *AuthInterceptor) UnaryAuthInterceptor(publicMethods []string) grpc.UnaryServerInterceptor {
	public := make(map[string]struct{}, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := public[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
		}

		authHeader := md.Get("authorization")
		if len(authHeader) == 0 {
			return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
		}

		rawToken, err := auth.BearerToken(authHeader[0])
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
		}

		usr, err := a.auth.Authenticate(ctx, rawToken)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
			}
			logger.Log.Errorln("Error calling the `a.auth.Authenticate()`: ", zap.Error(err))
			return nil, status.Error(codes.Internal, "internal error")
		}

		logger.SetAccessUser(ctx, usr.ID)

		return handler(auth.WithUser(ctx, usr), req)
	}
}
