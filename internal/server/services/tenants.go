package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/config"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
)

// BootstrapAdminUsername is the admin account created with every tenant.
const BootstrapAdminUsername = "admin"

// TenantCache is notified after a tenant record changes.
type TenantCache interface {
	Invalidate(t *models.Tenant)
}

// TenantService registers tenants and lets their admins manage them.
type TenantService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	hasher            PasswordHasher
	cache             TenantCache
	baseDomain        string
	urlPattern        string
	bootstrapPassword string
	log               logging.Logger
}

func NewTenantService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, cache TenantCache,
	cfg *config.Config, log logging.Logger) *TenantService {
	return &TenantService{
		db:                db,
		repomanager:       m,
		hasher:            hasher,
		cache:             cache,
		baseDomain:        cfg.BaseDomain,
		urlPattern:        cfg.TenantURLPattern,
		bootstrapPassword: cfg.BootstrapAdminPassword,
		log:               log.With("module", "tenants"),
	}
}

// Register creates a tenant together with its bootstrap admin user in one
// transaction. A taken subdomain yields common.ErrAlreadyExists.
func (s *TenantService) Register(ctx context.Context, name, subdomain string) (*models.Tenant, error) {
	name, err := validateName("name", name)
	if err != nil {
		return nil, err
	}
	subdomain, err = NormalizeSubdomain(subdomain)
	if err != nil {
		return nil, err
	}

	exists, err := s.repomanager.Tenants(s.db).SubdomainExists(ctx, subdomain)
	if err != nil {
		return nil, common.Backend("check subdomain", err)
	}
	if exists {
		return nil, common.ErrAlreadyExists
	}

	hash, err := s.hasher.Hash(s.bootstrapPassword)
	if err != nil {
		return nil, err
	}

	var tenant *models.Tenant
	err = s.repomanager.RunInTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		t, err := s.repomanager.Tenants(tx).Create(ctx, &models.Tenant{
			Name:      name,
			Subdomain: subdomain,
			IsActive:  true,
		})
		if err != nil {
			return err
		}

		_, err = s.repomanager.Users(tx).Create(ctx, &models.User{
			TenantID:     t.ID,
			Username:     BootstrapAdminUsername,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			IsActive:     true,
		})
		if err != nil {
			return fmt.Errorf("error creating bootstrap admin: %w", err)
		}

		tenant = t
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		return nil, common.Backend("register tenant", err)
	}

	s.log.Info(ctx, "tenant registered", "tenant_id", tenant.ID, "subdomain", tenant.Subdomain)
	return tenant, nil
}

// Get returns the caller's own tenant.
func (s *TenantService) Get(ctx context.Context, ac *auth.AuthContext) (*models.Tenant, error) {
	t, err := s.repomanager.Tenants(s.db).GetByID(ctx, ac.TenantID)
	if err != nil {
		return nil, common.Backend("get tenant", err)
	}
	return t, nil
}

// Update changes the caller's tenant. Nil arguments are left unchanged.
// Deactivating a tenant makes it unresolvable, which stops its logins.
func (s *TenantService) Update(ctx context.Context, ac *auth.AuthContext, name *string, isActive *bool) (*models.Tenant, error) {
	repo := s.repomanager.Tenants(s.db)

	t, err := repo.GetByID(ctx, ac.TenantID)
	if err != nil {
		return nil, common.Backend("get tenant", err)
	}

	if name != nil {
		n, err := validateName("name", *name)
		if err != nil {
			return nil, err
		}
		t.Name = n
	}
	if isActive != nil {
		t.IsActive = *isActive
	}

	updated, err := repo.Update(ctx, t)
	if err != nil {
		return nil, common.Backend("update tenant", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(updated)
	}

	s.log.Info(ctx, "tenant updated", "tenant_id", updated.ID, "is_active", updated.IsActive)
	return updated, nil
}

// URL renders the address clients use to reach t.
func (s *TenantService) URL(t *models.Tenant) string {
	if s.urlPattern == config.TenantURLPath {
		return fmt.Sprintf("https://%s/tenant/%s", s.baseDomain, t.Subdomain)
	}
	return fmt.Sprintf("https://%s.%s", t.Subdomain, s.baseDomain)
}
