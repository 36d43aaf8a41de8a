// Package books declares tenant-scoped persistence for the book catalogue.
package books

import (
	"context"

	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, book *models.Book) (*models.Book, error)
	GetByID(ctx context.Context, tenantID, id int64) (*models.Book, error)
	List(ctx context.Context, tenantID int64) ([]*models.Book, error)
	Update(ctx context.Context, book *models.Book) (*models.Book, error)
	Delete(ctx context.Context, tenantID, id int64) error
}
