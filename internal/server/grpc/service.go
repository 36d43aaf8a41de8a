package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// AuthService method names as seen by interceptors.
const (
	serviceName = "shelfkeeper.auth.v1.AuthService"

	MethodLogin     = "/" + serviceName + "/Login"
	MethodRefresh   = "/" + serviceName + "/Refresh"
	MethodLogout    = "/" + serviceName + "/Logout"
	MethodAuthorize = "/" + serviceName + "/Authorize"
	MethodWhoami    = "/" + serviceName + "/Whoami"
)

// AuthServiceServer is the server API of shelfkeeper.auth.v1.AuthService.
// Payloads are google.protobuf.Struct objects with snake_case keys, the
// same shape the HTTP API uses.
type AuthServiceServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Authorize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Whoami(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(AuthServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AuthServiceDesc describes AuthService for grpc.Server.RegisterService.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unaryHandler(MethodLogin, AuthServiceServer.Login)},
		{MethodName: "Refresh", Handler: unaryHandler(MethodRefresh, AuthServiceServer.Refresh)},
		{MethodName: "Logout", Handler: unaryHandler(MethodLogout, AuthServiceServer.Logout)},
		{MethodName: "Authorize", Handler: unaryHandler(MethodAuthorize, AuthServiceServer.Authorize)},
		{MethodName: "Whoami", Handler: unaryHandler(MethodWhoami, AuthServiceServer.Whoami)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shelfkeeper/auth/v1/auth.proto",
}
