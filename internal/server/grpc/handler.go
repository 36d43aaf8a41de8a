package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/rbac"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// statusFromError maps the error taxonomy to gRPC codes. Messages carry the
// error kind only, except for validation failures.
func statusFromError(err error) *status.Status {
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrUnauthenticated):
		return status.New(codes.Unauthenticated, common.ErrUnauthenticated.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.New(codes.Unauthenticated, common.ErrInvalidCredentials.Error())
	case errors.Is(err, common.ErrTokenExpired):
		return status.New(codes.Unauthenticated, common.ErrTokenExpired.Error())
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrMalformedToken):
		return status.New(codes.Unauthenticated, common.ErrInvalidToken.Error())
	case errors.Is(err, common.ErrWrongTenant):
		return status.New(codes.PermissionDenied, common.ErrWrongTenant.Error())
	case errors.Is(err, common.ErrForbidden):
		return status.New(codes.PermissionDenied, common.ErrForbidden.Error())
	case errors.Is(err, common.ErrAccountInactive):
		return status.New(codes.PermissionDenied, common.ErrAccountInactive.Error())
	case errors.Is(err, common.ErrTenantNotFound):
		return status.New(codes.NotFound, common.ErrTenantNotFound.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.New(codes.NotFound, common.ErrorNotFound.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		return status.New(codes.AlreadyExists, common.ErrAlreadyExists.Error())
	case errors.Is(err, common.ErrBackendUnavailable):
		return status.New(codes.Unavailable, common.ErrBackendUnavailable.Error())
	default:
		return status.New(codes.Internal, common.ErrorInternal.Error())
	}
}

func (s *GRPCServer) fail(ctx context.Context, method string, err error) error {
	st := statusFromError(err)
	if st.Code() == codes.Internal || st.Code() == codes.Unavailable {
		s.logger.Error(ctx, "call failed", "method", method, "error", err)
	}
	return st.Err()
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func tokenPairStruct(p *services.TokenPair) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"access_token":  p.AccessToken,
		"refresh_token": p.RefreshToken,
		"token_type":    p.TokenType,
		"expires_in":    p.ExpiresIn,
	})
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	_, hint := credentials(ctx)
	if hint == "" {
		hint = stringField(req, "tenant")
	}

	pair, err := s.sessions.Login(ctx, hint, stringField(req, "username"), stringField(req, "password"))
	if err != nil {
		s.logger.Info(ctx, "login failed", "tenant_hint", hint, "code", statusFromError(err).Code().String())
		return nil, s.fail(ctx, MethodLogin, err)
	}

	return tokenPairStruct(pair)
}

func (s *GRPCServer) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	pair, err := s.sessions.Refresh(ctx, stringField(req, "refresh_token"))
	if err != nil {
		return nil, s.fail(ctx, MethodRefresh, err)
	}

	return tokenPairStruct(pair)
}

func (s *GRPCServer) Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	if err := s.sessions.Logout(ctx, stringField(req, "refresh_token")); err != nil {
		return nil, s.fail(ctx, MethodLogout, err)
	}

	return &structpb.Struct{}, nil
}

// Authorize answers whether the caller's token grants the requested
// capability in the addressed tenant. A denial is an error status, never a
// successful response.
func (s *GRPCServer) Authorize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	capability := rbac.Capability(stringField(req, "capability"))
	if capability == "" {
		return nil, s.fail(ctx, MethodAuthorize, common.ErrValidation)
	}

	token, hint := credentials(ctx)
	ac, err := s.guard.Authorize(ctx, token, hint, capability)
	if err != nil {
		return nil, s.fail(ctx, MethodAuthorize, err)
	}

	return structpb.NewStruct(map[string]any{
		"allowed":   true,
		"tenant_id": ac.TenantID,
		"user_id":   ac.UserID,
		"role":      ac.Role.String(),
	})
}

func (s *GRPCServer) Whoami(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {

	ac, ok := auth.FromContext(ctx)
	if !ok {
		return nil, s.fail(ctx, MethodWhoami, common.ErrUnauthenticated)
	}

	caps := s.policy.Capabilities(ac.Role)
	list := make([]any, 0, len(caps))
	for _, c := range caps {
		list = append(list, string(c))
	}

	return structpb.NewStruct(map[string]any{
		"tenant_id":    ac.TenantID,
		"user_id":      ac.UserID,
		"role":         ac.Role.String(),
		"capabilities": list,
	})
}
