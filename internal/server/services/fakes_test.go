package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	booksrepo "github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/books"
	refreshtokensrepo "github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/refreshtokens"
	tenantsrepo "github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/tenants"
	usersrepo "github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/users"
)

// --- helpers ---

var cheapArgon = auth.ArgonParams{Memory: 64, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func mustHash(t *testing.T, h PasswordHasher, p string) string {
	t.Helper()
	s, err := h.Hash(p)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return s
}

// --- fake tenants repo ---

type fakeTenantsRepo struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]models.Tenant
	getErr  error
	existsE error
	lookups int
}

func newFakeTenantsRepo() *fakeTenantsRepo {
	return &fakeTenantsRepo{byID: map[int64]models.Tenant{}}
}

func (f *fakeTenantsRepo) add(name, sub string, active bool) *models.Tenant {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := models.Tenant{ID: f.nextID, Name: name, Subdomain: sub, IsActive: active, CreatedAt: time.Now()}
	f.byID[t.ID] = t
	return &t
}

func (f *fakeTenantsRepo) Create(_ context.Context, t *models.Tenant) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.byID {
		if strings.EqualFold(x.Subdomain, t.Subdomain) {
			return nil, common.ErrAlreadyExists
		}
	}
	f.nextID++
	c := *t
	c.ID = f.nextID
	f.byID[c.ID] = c
	return &c, nil
}

func (f *fakeTenantsRepo) GetBySubdomain(_ context.Context, sub string) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, x := range f.byID {
		if strings.EqualFold(x.Subdomain, sub) {
			return &x, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTenantsRepo) GetByID(_ context.Context, id int64) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.getErr != nil {
		return nil, f.getErr
	}
	x, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &x, nil
}

func (f *fakeTenantsRepo) Update(_ context.Context, t *models.Tenant) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[t.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	c.UpdatedAt = time.Now()
	f.byID[c.ID] = c
	return &c, nil
}

func (f *fakeTenantsRepo) SubdomainExists(_ context.Context, sub string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsE != nil {
		return false, f.existsE
	}
	for _, x := range f.byID {
		if strings.EqualFold(x.Subdomain, sub) {
			return true, nil
		}
	}
	return false, nil
}

// --- fake users repo ---

type fakeUsersRepo struct {
	mu        sync.Mutex
	nextID    int64
	byID      map[int64]models.User
	createErr error
	getErr    error
	touchErr  error
	touched   int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[int64]models.User{}}
}

func (f *fakeUsersRepo) add(tenantID int64, username, hash string, role models.Role, active bool) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := models.User{ID: f.nextID, TenantID: tenantID, Username: username, PasswordHash: hash, Role: role, IsActive: active}
	f.byID[u.ID] = u
	return &u
}

func (f *fakeUsersRepo) get(id int64) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUsersRepo) set(u models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, x := range f.byID {
		if x.TenantID == u.TenantID && x.Username == u.Username {
			return nil, common.ErrAlreadyExists
		}
	}
	f.nextID++
	c := *u
	c.ID = f.nextID
	c.CreatedAt = time.Now()
	f.byID[c.ID] = c
	return &c, nil
}

func (f *fakeUsersRepo) GetByUsername(_ context.Context, tenantID int64, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, x := range f.byID {
		if x.TenantID == tenantID && x.Username == username {
			return &x, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, tenantID, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	x, ok := f.byID[id]
	if !ok || x.TenantID != tenantID {
		return nil, common.ErrorNotFound
	}
	return &x, nil
}

func (f *fakeUsersRepo) List(_ context.Context, tenantID int64) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for id := int64(1); id <= f.nextID; id++ {
		x, ok := f.byID[id]
		if ok && x.TenantID == tenantID {
			out = append(out, &x)
		}
	}
	return out, nil
}

func (f *fakeUsersRepo) Update(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.byID[u.ID]
	if !ok || x.TenantID != u.TenantID {
		return nil, common.ErrorNotFound
	}
	x.Role = u.Role
	x.IsActive = u.IsActive
	f.byID[x.ID] = x
	return &x, nil
}

func (f *fakeUsersRepo) UpdatePassword(_ context.Context, tenantID, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.byID[id]
	if !ok || x.TenantID != tenantID {
		return common.ErrorNotFound
	}
	x.PasswordHash = hash
	f.byID[id] = x
	return nil
}

func (f *fakeUsersRepo) TouchLastLogin(_ context.Context, tenantID, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	x, ok := f.byID[id]
	if !ok || x.TenantID != tenantID {
		return common.ErrorNotFound
	}
	x.LastLoginAt = &at
	f.byID[id] = x
	f.touched++
	return nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, tenantID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.byID[id]
	if !ok || x.TenantID != tenantID {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// --- fake books repo ---

type fakeBooksRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.Book
}

func newFakeBooksRepo() *fakeBooksRepo {
	return &fakeBooksRepo{byID: map[int64]models.Book{}}
}

func (f *fakeBooksRepo) Create(_ context.Context, b *models.Book) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := *b
	c.ID = f.nextID
	f.byID[c.ID] = c
	return &c, nil
}

func (f *fakeBooksRepo) GetByID(_ context.Context, tenantID, id int64) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.byID[id]
	if !ok || x.TenantID != tenantID {
		return nil, common.ErrorNotFound
	}
	return &x, nil
}

func (f *fakeBooksRepo) List(_ context.Context, tenantID int64) ([]*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Book
	for id := int64(1); id <= f.nextID; id++ {
		x, ok := f.byID[id]
		if ok && x.TenantID == tenantID {
			out = append(out, &x)
		}
	}
	return out, nil
}

func (f *fakeBooksRepo) Update(_ context.Context, b *models.Book) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.byID[b.ID]
	if !ok || x.TenantID != b.TenantID {
		return nil, common.ErrorNotFound
	}
	c := *b
	f.byID[c.ID] = c
	return &c, nil
}

func (f *fakeBooksRepo) Delete(_ context.Context, tenantID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.byID[id]
	if !ok || x.TenantID != tenantID {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// --- fake repo manager ---

type fakeRepoManager struct {
	t *fakeTenantsRepo
	u *fakeUsersRepo
	b *fakeBooksRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{t: newFakeTenantsRepo(), u: newFakeUsersRepo(), b: newFakeBooksRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) RunInTx(ctx context.Context, db *sql.DB, fn func(context.Context, dbx.DBTX) error) error {
	return dbx.WithTx(ctx, db, nil, fn)
}
func (m *fakeRepoManager) Tenants(db dbx.DBTX) tenantsrepo.Repository             { return m.t }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) Books(db dbx.DBTX) booksrepo.Repository                 { return m.b }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return nil }
