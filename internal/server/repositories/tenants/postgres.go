package tenants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	query :=
		`INSERT INTO tenants (name, subdomain, is_active)
		 VALUES ($1, lower($2), $3)
		 RETURNING id, subdomain, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, tenant.Name, tenant.Subdomain, tenant.IsActive).
		Scan(&tenant.ID, &tenant.Subdomain, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tenant, nil
}

func (r *PostgresRepository) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	query :=
		`SELECT id, name, subdomain, is_active, created_at, updated_at FROM tenants
		 WHERE lower(subdomain) = lower($1)`

	return r.scanOne(r.db.QueryRowContext(ctx, query, subdomain))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	query :=
		`SELECT id, name, subdomain, is_active, created_at, updated_at FROM tenants
		 WHERE id = $1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	query :=
		`UPDATE tenants SET name = $2, is_active = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING id, name, subdomain, is_active, created_at, updated_at`

	return r.scanOne(r.db.QueryRowContext(ctx, query, tenant.ID, tenant.Name, tenant.IsActive))
}

func (r *PostgresRepository) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM tenants WHERE lower(subdomain) = lower($1))`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, subdomain).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(&t.ID, &t.Name, &t.Subdomain, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
