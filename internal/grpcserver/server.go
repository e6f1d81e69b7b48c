package grpcserver

import (
	"net"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/bookmarks/internal/grpcserver/interceptor"
)

// NewGRPCServer listens on addr and registers handler behind the logging
// and access-guard interceptors.
func NewGRPCServer(
	addr string,
	handler BookmarksServer,
	authInterceptor *interceptor.AuthInterceptor,
) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor(AllMethods),
			authInterceptor.UnaryAuthInterceptor(PublicMethods),
		),
	)
	server.RegisterService(&ServiceDesc, handler)

	return server, lis, nil
}
