// Package services contains server-side business logic. This file implements
// SessionService, which handles login, refresh token rotation, logout and
// password changes.
package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/config"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/revocation"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/tenants"
)

// TokenType is the OAuth-style token_type reported to clients.
const TokenType = "bearer"

// TokenPair bundles a short-lived access token and a long-lived refresh token.
// ExpiresIn is the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}

// TenantResolver maps a tenant hint to an active tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, hint string) (*models.Tenant, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) bool
}

// SessionService issues and rotates token pairs.
//
// Login answers every credential problem (unknown user, inactive user,
// wrong password) with common.ErrInvalidCredentials. Refresh consumes the
// presented refresh token through the revocation store, so each refresh
// token can be exchanged at most once.
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	tenants                      TenantResolver
	hasher                       PasswordHasher
	codec                        *auth.TokenCodec
	revocations                  revocation.Store
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	log                          logging.Logger
	now                          func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, resolver TenantResolver, hasher PasswordHasher,
	codec *auth.TokenCodec, store revocation.Store, cfg *config.Config, log logging.Logger) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		tenants:                      resolver,
		hasher:                       hasher,
		codec:                        codec,
		revocations:                  store,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		log:                          log.With("module", "sessions"),
		now:                          time.Now,
	}
}

func (s *SessionService) Login(ctx context.Context, tenantHint, username, password string) (*TokenPair, error) {
	tenant, err := s.tenants.Resolve(ctx, tenantHint)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, tenant.ID, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Spend the same hashing time as for a real account.
			s.hasher.Verify(password, s.dummy(ctx))
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.Backend("find user", err)
	}

	ok := s.hasher.Verify(password, user.PasswordHash)
	if !ok || !user.IsActive {
		return nil, common.ErrInvalidCredentials
	}

	if err := repo.TouchLastLogin(ctx, tenant.ID, user.ID, s.now()); err != nil {
		s.log.Warn(ctx, "could not record last login", "tenant_id", tenant.ID, "user_id", user.ID, "error", err)
	}

	return s.issuePair(user)
}

// Refresh exchanges a refresh token for a new pair. The role in the new
// access token is read from storage, so role changes apply on refresh.
// The token is consumed only after every storage lookup succeeded, so a
// backend outage leaves it usable for a retry. A deactivated tenant makes
// every account in it inactive and answers common.ErrAccountInactive.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	if _, err := s.tenants.Resolve(ctx, tenantIDHint(claims.TenantID)); err != nil {
		if errors.Is(err, common.ErrTenantNotFound) {
			return nil, common.ErrAccountInactive
		}
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.TenantID, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAccountInactive
		}
		return nil, common.Backend("find user", err)
	}
	if !user.IsActive {
		return nil, common.ErrAccountInactive
	}

	consumed, err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if !consumed {
		s.log.Warn(ctx, "refresh token reused", "tenant_id", claims.TenantID, "user_id", claims.UserID)
		return nil, common.ErrInvalidToken
	}

	return s.issuePair(user)
}

// Logout revokes a refresh token. Revoking an already revoked or expired
// token succeeds; access tokens stay valid until they expire.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil
		}
		return err
	}

	_, err = s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt)
	return err
}

// ChangePassword replaces the caller's password after re-checking the old
// one. Outstanding access tokens are not invalidated.
func (s *SessionService) ChangePassword(ctx context.Context, ac *auth.AuthContext, oldPassword, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, ac.TenantID, ac.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrAccountInactive
		}
		return common.Backend("find user", err)
	}
	if !user.IsActive {
		return common.ErrAccountInactive
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return common.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := repo.UpdatePassword(ctx, ac.TenantID, ac.UserID, hash); err != nil {
		return common.Backend("update password", err)
	}

	s.log.Info(ctx, "password changed", "tenant_id", ac.TenantID, "user_id", ac.UserID)
	return nil
}

func (s *SessionService) parseRefresh(token string) (*auth.Claims, error) {
	claims, err := s.codec.Parse(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, err
		}
		return nil, common.ErrInvalidToken
	}
	if claims.Type != auth.TokenTypeRefresh {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (s *SessionService) issuePair(user *models.User) (*TokenPair, error) {
	access, err := s.codec.Issue(auth.Claims{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Role:     user.Role,
		Type:     auth.TokenTypeAccess,
	}, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refresh, err := s.codec.Issue(auth.Claims{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Type:     auth.TokenTypeRefresh,
	}, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenType,
		ExpiresIn:    int64(s.accessTokenValidityDuration / time.Second),
	}, nil
}

// dummy returns a hash of a random password, used to equalize timing of
// logins for unknown usernames. A failed hash is logged and retried on the
// next call rather than cached.
func (s *SessionService) dummy(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyHash == "" {
		h, err := s.hasher.Hash(hex.EncodeToString(common.GenerateRandByteArray(16)))
		if err != nil {
			s.log.Error(ctx, "could not build dummy password hash", "error", err)
			return ""
		}
		s.dummyHash = h
	}
	return s.dummyHash
}

func tenantIDHint(id int64) string {
	return tenants.IDHintPrefix + strconv.FormatInt(id, 10)
}
