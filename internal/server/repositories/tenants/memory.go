package tenants

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

// MemoryRepository keeps tenants in process memory. It is meant for local
// runs and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.Tenant
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]models.Tenant)}
}

func (r *MemoryRepository) Create(_ context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := strings.ToLower(tenant.Subdomain)
	for _, t := range r.byID {
		if t.Subdomain == sub {
			return nil, common.ErrAlreadyExists
		}
	}

	r.nextID++
	now := time.Now().UTC()
	t := *tenant
	t.ID = r.nextID
	t.Subdomain = sub
	t.CreatedAt = now
	t.UpdatedAt = now
	r.byID[t.ID] = t
	return &t, nil
}

func (r *MemoryRepository) GetBySubdomain(_ context.Context, subdomain string) (*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub := strings.ToLower(subdomain)
	for _, t := range r.byID {
		if t.Subdomain == sub {
			return &t, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) Update(_ context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[tenant.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	t.Name = tenant.Name
	t.IsActive = tenant.IsActive
	t.UpdatedAt = time.Now().UTC()
	r.byID[t.ID] = t
	return &t, nil
}

func (r *MemoryRepository) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	_, err := r.GetBySubdomain(ctx, subdomain)
	if err != nil {
		return false, nil
	}
	return true, nil
}
