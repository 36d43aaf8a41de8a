package revocation

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/refreshtokens"
)

// PostgresStore adapts the refreshtokens repository to Store. Atomicity
// comes from INSERT ... ON CONFLICT DO NOTHING on the token id key.
type PostgresStore struct {
	repo refreshtokens.Repository
	now  func() time.Time
}

func NewPostgresStore(repo refreshtokens.Repository) *PostgresStore {
	return &PostgresStore{repo: repo, now: time.Now}
}

func (s *PostgresStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	revoked, err := s.repo.IsRevoked(ctx, tokenID)
	if err != nil {
		return false, common.Backend("revocation lookup", err)
	}
	return revoked, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	consumed, err := s.repo.Revoke(ctx, tokenID, expiresAt)
	if err != nil {
		return false, common.Backend("revocation insert", err)
	}
	return consumed, nil
}

// Purge drops records of tokens that have expired on their own.
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, common.Backend("revocation purge", err)
	}
	return n, nil
}

// RunPurger calls Purge every interval until ctx is done.
func (s *PostgresStore) RunPurger(ctx context.Context, interval time.Duration, log logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge(ctx)
			if err != nil {
				log.Warn(ctx, "revocation purge failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug(ctx, "revocation purge", "deleted", n)
			}
		}
	}
}
