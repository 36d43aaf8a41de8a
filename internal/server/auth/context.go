package auth

import (
	"context"

	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

// AuthContext is the validated identity of one request. It lives only as
// long as the request; downstream queries must filter by TenantID.
type AuthContext struct {
	TenantID int64
	UserID   int64
	Role     models.Role
}

type authContextKey struct{}

func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(*AuthContext)
	return ac, ok && ac != nil
}
