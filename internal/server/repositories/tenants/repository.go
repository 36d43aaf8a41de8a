// Package tenants declares the persistence contract for tenant records.
package tenants

import (
	"context"

	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts a tenant; a taken subdomain yields common.ErrAlreadyExists.
	Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error)
	// GetBySubdomain matches case-insensitively.
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	GetByID(ctx context.Context, id int64) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error)
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
}
