package sessions

import (
	"context"
	"time"
)

// Session is the token pair the CLI keeps for one tenant.
type Session struct {
	Tenant       string
	Username     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Repository stores at most one session per tenant. Get returns (nil, nil)
// when the tenant has none.
type Repository interface {
	Get(ctx context.Context, tenant string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, tenant string) error
	List(ctx context.Context) ([]*Session, error)
}
