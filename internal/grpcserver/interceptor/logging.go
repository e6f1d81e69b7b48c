package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/bookmarks/internal/logger"
)

// UnaryLoggingInterceptor logs method, duration, status code and the
// authenticated user of each call to one of loggedMethods.
func UnaryLoggingInterceptor(loggedMethods []string) grpc.UnaryServerInterceptor {
	logged := make(map[string]struct{}, len(loggedMethods))
	for _, m := range loggedMethods {
		logged[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		if _, ok := logged[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		start := time.Now()

		ctx, record := logger.WithAccessRecord(ctx)
		resp, err = handler(ctx, req)

		logger.RPC(info.FullMethod, time.Since(start), status.Code(err).String(), record)

		return resp, err
	}
}
