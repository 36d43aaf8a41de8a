// Package services contains application services for the shelfctl client.
// This file defines the session service: tenant registration, login,
// token refresh and logout, plus authorized calls that refresh on demand.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/client/client"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/repositories/sessions"
)

// refreshSkew renews an access token this long before it expires.
const refreshSkew = 15 * time.Second

// API is the part of the server API the session service needs.
type API interface {
	Ping(ctx context.Context) error
	RegisterTenant(ctx context.Context, name, subdomain string) (*client.Registration, error)
	Login(ctx context.Context, tenant, username string, password []byte) (*client.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*client.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, tenant, token string, oldPassword, newPassword []byte) error
	Me(ctx context.Context, tenant, token string) (*client.User, error)
	ListBooks(ctx context.Context, tenant, token string) ([]client.Book, error)
	CreateBook(ctx context.Context, tenant, token string, b client.Book) (*client.Book, error)
	DeleteBook(ctx context.Context, tenant, token string, id int64) error
}

// AuthService keeps one session per tenant in the local database.
type AuthService struct {
	api      API
	sessions sessions.Repository
	now      func() time.Time
}

func NewAuthService(api API, repo sessions.Repository) *AuthService {
	return &AuthService{api: api, sessions: repo, now: time.Now}
}

func (a *AuthService) Ping(ctx context.Context) error {
	return a.api.Ping(ctx)
}

// Register creates a tenant. The server seeds an admin user whose name is
// returned in the registration.
func (a *AuthService) Register(ctx context.Context, name, subdomain string) (*client.Registration, error) {
	return a.api.RegisterTenant(ctx, name, subdomain)
}

// Login authenticates and stores the token pair for tenant.
func (a *AuthService) Login(ctx context.Context, tenant, username string, password []byte) (*sessions.Session, error) {
	pair, err := a.api.Login(ctx, tenant, username, password)
	if err != nil {
		return nil, err
	}

	s := a.sessionFrom(tenant, username, pair)
	if err := a.sessions.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

// Refresh rotates the stored pair. A rejected refresh token drops the
// session, since it can never be used again.
func (a *AuthService) Refresh(ctx context.Context, tenant string) (*sessions.Session, error) {
	s, err := a.current(ctx, tenant)
	if err != nil {
		return nil, err
	}

	pair, err := a.api.Refresh(ctx, s.RefreshToken)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrForbidden) {
			_ = a.sessions.Delete(ctx, tenant)
			return nil, fmt.Errorf("%w: %v", client.ErrNotLoggedIn, err)
		}
		return nil, err
	}

	next := a.sessionFrom(tenant, s.Username, pair)
	if err := a.sessions.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return next, nil
}

// Logout revokes the refresh token and forgets the session. A token the
// server already rejects still counts as logged out.
func (a *AuthService) Logout(ctx context.Context, tenant string) error {
	s, err := a.current(ctx, tenant)
	if err != nil {
		return err
	}

	if err := a.api.Logout(ctx, s.RefreshToken); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	return a.sessions.Delete(ctx, tenant)
}

// Sessions lists the tenants with a stored session.
func (a *AuthService) Sessions(ctx context.Context) ([]*sessions.Session, error) {
	return a.sessions.List(ctx)
}

func (a *AuthService) Whoami(ctx context.Context, tenant string) (*client.User, error) {
	var u *client.User
	err := a.authorized(ctx, tenant, func(token string) error {
		var err error
		u, err = a.api.Me(ctx, tenant, token)
		return err
	})
	return u, err
}

func (a *AuthService) ChangePassword(ctx context.Context, tenant string, oldPassword, newPassword []byte) error {
	return a.authorized(ctx, tenant, func(token string) error {
		return a.api.ChangePassword(ctx, tenant, token, oldPassword, newPassword)
	})
}

func (a *AuthService) ListBooks(ctx context.Context, tenant string) ([]client.Book, error) {
	var out []client.Book
	err := a.authorized(ctx, tenant, func(token string) error {
		var err error
		out, err = a.api.ListBooks(ctx, tenant, token)
		return err
	})
	return out, err
}

func (a *AuthService) AddBook(ctx context.Context, tenant string, b client.Book) (*client.Book, error) {
	var out *client.Book
	err := a.authorized(ctx, tenant, func(token string) error {
		var err error
		out, err = a.api.CreateBook(ctx, tenant, token, b)
		return err
	})
	return out, err
}

func (a *AuthService) DeleteBook(ctx context.Context, tenant string, id int64) error {
	return a.authorized(ctx, tenant, func(token string) error {
		return a.api.DeleteBook(ctx, tenant, token, id)
	})
}

// authorized runs call with a valid access token. An expiring token is
// refreshed first; a 401 from call triggers one refresh and a retry.
func (a *AuthService) authorized(ctx context.Context, tenant string, call func(token string) error) error {
	s, err := a.current(ctx, tenant)
	if err != nil {
		return err
	}

	if !a.now().Before(s.ExpiresAt.Add(-refreshSkew)) {
		if s, err = a.Refresh(ctx, tenant); err != nil {
			return err
		}
	}

	err = call(s.AccessToken)
	if !errors.Is(err, client.ErrUnauthorized) {
		return err
	}

	if s, err = a.Refresh(ctx, tenant); err != nil {
		return err
	}
	return call(s.AccessToken)
}

func (a *AuthService) current(ctx context.Context, tenant string) (*sessions.Session, error) {
	s, err := a.sessions.Get(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, client.ErrNotLoggedIn
	}
	return s, nil
}

func (a *AuthService) sessionFrom(tenant, username string, pair *client.TokenPair) *sessions.Session {
	return &sessions.Session{
		Tenant:       tenant,
		Username:     username,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    a.now().Add(time.Duration(pair.ExpiresIn) * time.Second),
	}
}
