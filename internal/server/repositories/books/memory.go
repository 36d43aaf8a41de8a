package books

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

// MemoryRepository keeps books in process memory. It is meant for local
// runs and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.Book
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]models.Book)}
}

func (r *MemoryRepository) Create(_ context.Context, book *models.Book) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	b := *book
	b.ID = r.nextID
	b.CreatedAt = now
	b.UpdatedAt = now
	r.byID[b.ID] = b
	return &b, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, tenantID, id int64) (*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byID[id]
	if !ok || b.TenantID != tenantID {
		return nil, common.ErrorNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) List(_ context.Context, tenantID int64) ([]*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Book
	for _, b := range r.byID {
		if b.TenantID == tenantID {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, book *models.Book) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byID[book.ID]
	if !ok || b.TenantID != book.TenantID {
		return nil, common.ErrorNotFound
	}
	b.Title = book.Title
	b.Author = book.Author
	b.ISBN = book.ISBN
	b.UpdatedAt = time.Now().UTC()
	r.byID[b.ID] = b
	return &b, nil
}

func (r *MemoryRepository) Delete(_ context.Context, tenantID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byID[id]
	if !ok || b.TenantID != tenantID {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}
