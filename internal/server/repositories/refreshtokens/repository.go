// Package refreshtokens declares the persistent revocation list of refresh
// token ids (jti). A row means "this refresh token may not be exchanged".
package refreshtokens

import (
	"context"
	"time"
)

type Repository interface {
	// Revoke records tokenID. It reports true only for the call that
	// inserted the row, which makes it an atomic check-and-invalidate.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)

	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// DeleteExpired purges rows whose token would be expired anyway.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
