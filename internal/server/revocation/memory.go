package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps revoked ids in process memory. It only protects a single
// server instance and forgets everything on restart.
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[tokenID]
	if ok && !s.now().Before(exp) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return ok, nil
}

func (s *MemoryStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.revoked[tokenID]; ok && now.Before(exp) {
		return false, nil
	}
	s.revoked[tokenID] = expiresAt
	s.purgeLocked(now)
	return true, nil
}

// Len reports how many ids are currently tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.revoked)
}

func (s *MemoryStore) purgeLocked(now time.Time) {
	for id, exp := range s.revoked {
		if !now.Before(exp) {
			delete(s.revoked, id)
		}
	}
}
