package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/config"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/tenants"
)

// newTenantService builds a service without a database; only paths that
// never open a transaction may use it.
func newTenantService(rm *fakeRepoManager, cache TenantCache, pattern string) *TenantService {
	cfg := &config.Config{
		BaseDomain:             "books.example",
		TenantURLPattern:       pattern,
		BootstrapAdminPassword: "ChangeMe123!",
	}
	return NewTenantService(nil, rm, auth.NewPasswordHasher(cheapArgon), cache, cfg, logging.Nop())
}

func TestTenantRegister_CreatesTenantAndBootstrapAdmin(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := newFakeRepoManager()
	hasher := auth.NewPasswordHasher(cheapArgon)
	cfg := &config.Config{BaseDomain: "books.example", TenantURLPattern: config.TenantURLSubdomain, BootstrapAdminPassword: "ChangeMe123!"}
	s := NewTenantService(db, rm, hasher, nil, cfg, logging.Nop())

	tn, err := s.Register(context.Background(), "  Acme Books ", "Acme")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if tn.Name != "Acme Books" || tn.Subdomain != "acme" || !tn.IsActive {
		t.Fatalf("unexpected tenant: %+v", tn)
	}

	admin, err := rm.u.GetByUsername(context.Background(), tn.ID, BootstrapAdminUsername)
	if err != nil {
		t.Fatalf("bootstrap admin missing: %v", err)
	}
	if admin.Role != models.RoleAdmin || !admin.IsActive {
		t.Fatalf("unexpected admin: %+v", admin)
	}
	if !hasher.Verify("ChangeMe123!", admin.PasswordHash) {
		t.Fatalf("bootstrap password does not verify")
	}
	if got := s.URL(tn); got != "https://acme.books.example" {
		t.Fatalf("URL = %q", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestTenantRegister_Validation(t *testing.T) {
	rm := newFakeRepoManager()
	s := newTenantService(rm, nil, config.TenantURLSubdomain)

	cases := []struct {
		name, tenant, sub string
	}{
		{"reserved www", "X", "www"},
		{"reserved admin", "X", "ADMIN"},
		{"underscore", "X", "my_lib"},
		{"leading hyphen", "X", "-lib"},
		{"empty name", "  ", "lib"},
		{"empty subdomain", "Lib", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tc.tenant, tc.sub)
			if !errors.Is(err, common.ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
}

func TestTenantRegister_TakenSubdomain(t *testing.T) {
	rm := newFakeRepoManager()
	rm.t.add("Acme", "acme", true)
	s := newTenantService(rm, nil, config.TenantURLSubdomain)

	_, err := s.Register(context.Background(), "Other", "acme")
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestTenantRegister_RollsBackWhenAdminCannotBeCreated(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := newFakeRepoManager()
	rm.u.createErr = errors.New("disk full")
	cfg := &config.Config{BootstrapAdminPassword: "ChangeMe123!"}
	s := NewTenantService(db, rm, auth.NewPasswordHasher(cheapArgon), nil, cfg, logging.Nop())

	_, err := s.Register(context.Background(), "Acme", "acme")
	if !errors.Is(err, common.ErrBackendUnavailable) {
		t.Fatalf("want ErrBackendUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestTenantRegister_BeginFails(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	rm := newFakeRepoManager()
	cfg := &config.Config{BootstrapAdminPassword: "ChangeMe123!"}
	s := NewTenantService(db, rm, auth.NewPasswordHasher(cheapArgon), nil, cfg, logging.Nop())

	_, err := s.Register(context.Background(), "Acme", "acme")
	if !errors.Is(err, common.ErrBackendUnavailable) {
		t.Fatalf("want ErrBackendUnavailable, got %v", err)
	}
}

func TestTenantUpdate_DeactivationStopsResolution(t *testing.T) {
	rm := newFakeRepoManager()
	tn := rm.t.add("Acme", "acme", true)
	resolver := tenants.NewResolver(rm.t, tenants.Options{CacheTTL: time.Hour, CacheSize: 8}, logging.Nop())
	s := newTenantService(rm, resolver, config.TenantURLSubdomain)

	if _, err := resolver.Resolve(context.Background(), "acme"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	ac := &auth.AuthContext{TenantID: tn.ID, UserID: 1, Role: models.RoleAdmin}
	name := "Acme Library"
	off := false
	updated, err := s.Update(context.Background(), ac, &name, &off)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Name != name || updated.IsActive {
		t.Fatalf("unexpected tenant: %+v", updated)
	}

	if _, err := resolver.Resolve(context.Background(), "acme"); !errors.Is(err, common.ErrTenantNotFound) {
		t.Fatalf("want ErrTenantNotFound after deactivation, got %v", err)
	}
}

func TestTenantGetAndUpdateValidation(t *testing.T) {
	rm := newFakeRepoManager()
	tn := rm.t.add("Acme", "acme", true)
	s := newTenantService(rm, nil, config.TenantURLPath)
	ac := &auth.AuthContext{TenantID: tn.ID, UserID: 1, Role: models.RoleAdmin}

	got, err := s.Get(context.Background(), ac)
	if err != nil || got.ID != tn.ID {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	empty := " "
	if _, err := s.Update(context.Background(), ac, &empty, nil); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}

	if u := s.URL(tn); u != "https://books.example/tenant/acme" {
		t.Fatalf("URL = %q", u)
	}

	_, err = s.Get(context.Background(), &auth.AuthContext{TenantID: 42})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}
