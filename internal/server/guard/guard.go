// Package guard is the single authorization entry point for protected
// operations. It combines the token codec, the tenant resolver and the
// role policy into one decision.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/rbac"
)

// Decision labels reported to the DecisionObserver.
const (
	ResultAllow           = "allow"
	ResultUnauthenticated = "unauthenticated"
	ResultWrongTenant     = "wrong_tenant"
	ResultForbidden       = "forbidden"
	ResultError           = "error"
)

type TenantResolver interface {
	Resolve(ctx context.Context, hint string) (*models.Tenant, error)
}

type DecisionObserver interface {
	ObserveDecision(result string)
}

type Guard struct {
	codec    *auth.TokenCodec
	tenants  TenantResolver
	policy   *rbac.Policy
	log      logging.Logger
	observer DecisionObserver
}

type Option func(*Guard)

func WithObserver(o DecisionObserver) Option {
	return func(g *Guard) {
		g.observer = o
	}
}

func New(codec *auth.TokenCodec, resolver TenantResolver, policy *rbac.Policy, log logging.Logger, opts ...Option) *Guard {
	g := &Guard{
		codec:   codec,
		tenants: resolver,
		policy:  policy,
		log:     log.With("module", "guard"),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Authorize checks, in order: the access token, that the token's tenant is
// the tenant named by hint, and that the role holds capability. It fails
// with common.ErrUnauthenticated, common.ErrWrongTenant or
// common.ErrForbidden respectively, and with common.ErrBackendUnavailable
// when the tenant store cannot be reached.
func (g *Guard) Authorize(ctx context.Context, rawToken, tenantHint string, capability rbac.Capability) (*auth.AuthContext, error) {
	ac, err := g.authenticate(ctx, rawToken, tenantHint)
	if err != nil {
		return nil, err
	}

	if !g.policy.IsAllowed(ac.Role, capability) {
		g.log.Info(ctx, "capability denied", "tenant_id", ac.TenantID, "user_id", ac.UserID,
			"role", ac.Role, "capability", capability)
		g.observe(ResultForbidden)
		return nil, common.ErrForbidden
	}

	g.observe(ResultAllow)
	return ac, nil
}

// RequireAuthenticated runs the token and tenant checks of Authorize without
// requiring any capability. It serves operations every role may perform on
// its own account, such as changing the password.
func (g *Guard) RequireAuthenticated(ctx context.Context, rawToken, tenantHint string) (*auth.AuthContext, error) {
	ac, err := g.authenticate(ctx, rawToken, tenantHint)
	if err != nil {
		return nil, err
	}
	g.observe(ResultAllow)
	return ac, nil
}

func (g *Guard) authenticate(ctx context.Context, rawToken, tenantHint string) (*auth.AuthContext, error) {
	claims, err := g.codec.Parse(rawToken)
	if err != nil {
		g.observe(ResultUnauthenticated)
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}
	if claims.Type != auth.TokenTypeAccess {
		g.observe(ResultUnauthenticated)
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthenticated, common.ErrInvalidToken)
	}

	tenant, err := g.tenants.Resolve(ctx, tenantHint)
	if err != nil {
		if errors.Is(err, common.ErrTenantNotFound) {
			g.observe(ResultWrongTenant)
			return nil, common.ErrWrongTenant
		}
		g.observe(ResultError)
		return nil, err
	}

	if tenant.ID != claims.TenantID {
		g.log.Warn(ctx, "token used against another tenant", "token_tenant_id", claims.TenantID,
			"request_tenant_id", tenant.ID, "user_id", claims.UserID)
		g.observe(ResultWrongTenant)
		return nil, common.ErrWrongTenant
	}

	return &auth.AuthContext{
		TenantID: claims.TenantID,
		UserID:   claims.UserID,
		Role:     claims.Role,
	}, nil
}

func (g *Guard) observe(result string) {
	if g.observer != nil {
		g.observer.ObserveDecision(result)
	}
}
