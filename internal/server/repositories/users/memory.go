package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

// MemoryRepository keeps users in process memory. It is meant for local
// runs and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]models.User)}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.TenantID == user.TenantID && u.Username == user.Username {
			return nil, common.ErrAlreadyExists
		}
	}

	r.nextID++
	u := *user
	u.ID = r.nextID
	u.CreatedAt = time.Now().UTC()
	r.byID[u.ID] = u
	return &u, nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, tenantID int64, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.TenantID == tenantID && u.Username == username {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetByID(_ context.Context, tenantID, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok || u.TenantID != tenantID {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) List(_ context.Context, tenantID int64) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.User
	for _, u := range r.byID {
		if u.TenantID == tenantID {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, user *models.User) (*models.User, error) {
	return r.modify(user.TenantID, user.ID, func(u *models.User) {
		u.Role = user.Role
		u.IsActive = user.IsActive
	})
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, tenantID, id int64, passwordHash string) error {
	_, err := r.modify(tenantID, id, func(u *models.User) {
		u.PasswordHash = passwordHash
	})
	return err
}

func (r *MemoryRepository) TouchLastLogin(_ context.Context, tenantID, id int64, at time.Time) error {
	_, err := r.modify(tenantID, id, func(u *models.User) {
		u.LastLoginAt = &at
	})
	return err
}

func (r *MemoryRepository) Delete(_ context.Context, tenantID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.TenantID != tenantID {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) modify(tenantID, id int64, fn func(*models.User)) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.TenantID != tenantID {
		return nil, common.ErrorNotFound
	}
	fn(&u)
	r.byID[id] = u
	return &u, nil
}
