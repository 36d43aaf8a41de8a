// Package revocation tracks refresh token ids (jti) that may no longer be
// exchanged. It is the only shared mutable state on the token path, so
// every backend implements Revoke as an atomic check-and-invalidate.
package revocation

import (
	"context"
	"time"
)

type Store interface {
	// IsRevoked reports whether tokenID was already used. It is a read-only
	// diagnostic; the refresh path relies on Revoke alone, since a separate
	// check followed by Revoke would race.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// Revoke marks tokenID as used. consumed is true only for the single
	// caller that performed the transition; a concurrent or later call for
	// the same id gets false. expiresAt bounds how long the record is kept.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (consumed bool, err error)
}
