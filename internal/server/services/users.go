package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
)

// UserService manages the accounts of the caller's tenant. Every call is
// scoped by ac.TenantID, so a user id of another tenant is reported as
// common.ErrorNotFound.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	log         logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		log:         log.With("module", "users"),
	}
}

func (s *UserService) Create(ctx context.Context, ac *auth.AuthContext, username, password string, role models.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		TenantID:     ac.TenantID,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		return nil, common.Backend("create user", err)
	}

	s.log.Info(ctx, "user created", "tenant_id", ac.TenantID, "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *UserService) List(ctx context.Context, ac *auth.AuthContext) ([]*models.User, error) {
	list, err := s.repomanager.Users(s.db).List(ctx, ac.TenantID)
	if err != nil {
		return nil, common.Backend("list users", err)
	}
	return list, nil
}

func (s *UserService) Get(ctx context.Context, ac *auth.AuthContext, id int64) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, ac.TenantID, id)
	if err != nil {
		return nil, common.Backend("get user", err)
	}
	return u, nil
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, ac *auth.AuthContext) (*models.User, error) {
	return s.Get(ctx, ac, ac.UserID)
}

// Update changes role and active flag. Nil arguments are left unchanged.
// The caller cannot deactivate their own account.
func (s *UserService) Update(ctx context.Context, ac *auth.AuthContext, id int64, role *models.Role, isActive *bool) (*models.User, error) {
	if id == ac.UserID && isActive != nil && !*isActive {
		return nil, invalid("cannot deactivate your own account")
	}
	if role != nil && !role.Valid() {
		return nil, invalid("unknown role %q", *role)
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.GetByID(ctx, ac.TenantID, id)
	if err != nil {
		return nil, common.Backend("get user", err)
	}

	if role != nil {
		u.Role = *role
	}
	if isActive != nil {
		u.IsActive = *isActive
	}

	updated, err := repo.Update(ctx, u)
	if err != nil {
		return nil, common.Backend("update user", err)
	}

	s.log.Info(ctx, "user updated", "tenant_id", ac.TenantID, "user_id", id, "role", updated.Role, "is_active", updated.IsActive)
	return updated, nil
}

// Delete removes a user of the caller's tenant. The caller cannot delete
// their own account.
func (s *UserService) Delete(ctx context.Context, ac *auth.AuthContext, id int64) error {
	if id == ac.UserID {
		return invalid("cannot delete your own account")
	}
	if err := s.repomanager.Users(s.db).Delete(ctx, ac.TenantID, id); err != nil {
		return common.Backend("delete user", err)
	}

	s.log.Info(ctx, "user deleted", "tenant_id", ac.TenantID, "user_id", id)
	return nil
}
