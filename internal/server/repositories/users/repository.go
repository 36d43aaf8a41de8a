// Package users declares the persistence contract for user accounts.
// Every method is scoped by tenant id; a user of another tenant is
// reported as common.ErrorNotFound.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, tenantID int64, username string) (*models.User, error)
	GetByID(ctx context.Context, tenantID, id int64) (*models.User, error)
	List(ctx context.Context, tenantID int64) ([]*models.User, error)
	// Update persists Role and IsActive.
	Update(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, tenantID, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, tenantID, id int64, at time.Time) error
	Delete(ctx context.Context, tenantID, id int64) error
}
