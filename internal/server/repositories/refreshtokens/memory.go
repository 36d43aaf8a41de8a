package refreshtokens

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is the in-process revocation list. It is meant for
// single-instance local runs and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{revoked: make(map[string]time.Time)}
}

func (r *MemoryRepository) Revoke(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.revoked[tokenID]; ok {
		return false, nil
	}
	r.revoked[tokenID] = expiresAt
	return true, nil
}

func (r *MemoryRepository) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.revoked[tokenID]
	return ok, nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, exp := range r.revoked {
		if exp.Before(before) {
			delete(r.revoked, id)
			n++
		}
	}
	return n, nil
}
