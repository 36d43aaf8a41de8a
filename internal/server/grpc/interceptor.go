package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/rbac"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// protectedMethods lists the methods the interceptor guards. An empty
// capability only requires a valid access token for the addressed tenant.
// Authorize is absent because the capability it checks comes from the
// request body.
var protectedMethods = map[string]rbac.Capability{
	MethodWhoami: "",
}

// credentials reads the access token and tenant hint from incoming
// metadata. The token may be sent as "authorization: Bearer <jwt>" or as a
// bare "access_token".
func credentials(ctx context.Context) (token, hint string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ""
	}

	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
		if scheme, t, ok := strings.Cut(values[0], " "); ok && strings.EqualFold(scheme, "bearer") {
			token = strings.TrimSpace(t)
		}
	}
	if token == "" {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			token = values[0]
		}
	}
	if values := md.Get(common.TenantHeaderName); len(values) > 0 {
		hint = strings.TrimSpace(values[0])
	}
	return token, hint
}

func (s *GRPCServer) guardInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	capability, ok := protectedMethods[info.FullMethod]
	if !ok {
		return handler(ctx, req)
	}

	token, hint := credentials(ctx)

	var (
		ac  *auth.AuthContext
		err error
	)
	if capability == "" {
		ac, err = s.guard.RequireAuthenticated(ctx, token, hint)
	} else {
		ac, err = s.guard.Authorize(ctx, token, hint, capability)
	}
	if err != nil {
		s.logger.Info(ctx, "call denied", "method", info.FullMethod, "tenant_hint", hint, "code", statusFromError(err).Code().String())
		return nil, statusFromError(err).Err()
	}

	return handler(auth.WithAuthContext(ctx, ac), req)
}
