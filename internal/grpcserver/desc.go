package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bookmarks.v1.Bookmarks"

const (
	MethodSignup         = "/" + ServiceName + "/Signup"
	MethodSignin         = "/" + ServiceName + "/Signin"
	MethodGetMe          = "/" + ServiceName + "/GetMe"
	MethodListBookmarks  = "/" + ServiceName + "/ListBookmarks"
	MethodGetBookmark    = "/" + ServiceName + "/GetBookmark"
	MethodCreateBookmark = "/" + ServiceName + "/CreateBookmark"
	MethodEditBookmark   = "/" + ServiceName + "/EditBookmark"
	MethodDeleteBookmark = "/" + ServiceName + "/DeleteBookmark"
)

// PublicMethods are callable without a token. Every other method, including
// ones unknown to the interceptor, requires a valid bearer token in the
// "authorization" metadata.
var PublicMethods = []string{
	MethodSignup,
	MethodSignin,
}

// ProtectedMethods lists the methods behind the token check.
var ProtectedMethods = []string{
	MethodGetMe,
	MethodListBookmarks,
	MethodGetBookmark,
	MethodCreateBookmark,
	MethodEditBookmark,
	MethodDeleteBookmark,
}

// AllMethods lists every method of the service.
var AllMethods = append(append([]string{}, PublicMethods...), ProtectedMethods...)

// BookmarksServer is the server API of bookmarks.v1.Bookmarks. Requests and
// responses are google.protobuf.Struct values shaped like the HTTP JSON bodies.
type BookmarksServer interface {
	Signup(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Signin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetMe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListBookmarks(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetBookmark(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CreateBookmark(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	EditBookmark(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteBookmark(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv BookmarksServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(BookmarksServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(server, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes bookmarks.v1.Bookmarks for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookmarksServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Signup",
			Handler:    unaryHandler(MethodSignup, BookmarksServer.Signup),
		},
		{
			MethodName: "Signin",
			Handler:    unaryHandler(MethodSignin, BookmarksServer.Signin),
		},
		{
			MethodName: "GetMe",
			Handler:    unaryHandler(MethodGetMe, BookmarksServer.GetMe),
		},
		{
			MethodName: "ListBookmarks",
			Handler:    unaryHandler(MethodListBookmarks, BookmarksServer.ListBookmarks),
		},
		{
			MethodName: "GetBookmark",
			Handler:    unaryHandler(MethodGetBookmark, BookmarksServer.GetBookmark),
		},
		{
			MethodName: "CreateBookmark",
			Handler:    unaryHandler(MethodCreateBookmark, BookmarksServer.CreateBookmark),
		},
		{
			MethodName: "EditBookmark",
			Handler:    unaryHandler(MethodEditBookmark, BookmarksServer.EditBookmark),
		},
		{
			MethodName: "DeleteBookmark",
			Handler:    unaryHandler(MethodDeleteBookmark, BookmarksServer.DeleteBookmark),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookmarks/v1/bookmarks.proto",
}

// Client calls bookmarks.v1.Bookmarks over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes fullMethod with fields converted to a google.protobuf.Struct.
func (c *Client) Call(ctx context.Context, fullMethod string, fields map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
