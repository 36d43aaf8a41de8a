package tenants

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

var tenantColumns = []string{"id", "name", "subdomain", "is_active", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)^INSERT\s+INTO\s+tenants\s*\(name,\s*subdomain,\s*is_active\)\s*VALUES\s*\(\$1,\s*lower\(\$2\),\s*\$3\)\s*RETURNING\s+id,\s*subdomain,\s*created_at,\s*updated_at$`
	mock.ExpectQuery(q).
		WithArgs("Acme Library", "Acme", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subdomain", "created_at", "updated_at"}).AddRow(int64(1), "acme", now, now))

	got, err := repo.Create(context.Background(), &models.Tenant{Name: "Acme Library", Subdomain: "Acme", IsActive: true})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 1 || got.Subdomain != "acme" {
		t.Fatalf("unexpected tenant: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+tenants`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.Tenant{Name: "x", Subdomain: "acme", IsActive: true})
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+tenants`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Tenant{Name: "x", Subdomain: "acme"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetBySubdomain_CaseInsensitive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)^SELECT\s+id,\s*name,\s*subdomain,\s*is_active,\s*created_at,\s*updated_at\s+FROM\s+tenants\s+WHERE\s+lower\(subdomain\)\s*=\s*lower\(\$1\)$`
	mock.ExpectQuery(q).
		WithArgs("ACME").
		WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(int64(3), "Acme", "acme", true, now, now))

	got, err := repo.GetBySubdomain(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("GetBySubdomain error: %v", err)
	}
	if got.ID != 3 || got.Subdomain != "acme" || !got.IsActive {
		t.Fatalf("unexpected tenant: %+v", got)
	}
}

func TestGetBySubdomain_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id.*FROM\s+tenants`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySubdomain(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id.*FROM\s+tenants\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(int64(9), "Beta", "beta", false, now, now))

	got, err := repo.GetByID(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.Name != "Beta" || got.IsActive {
		t.Fatalf("unexpected tenant: %+v", got)
	}

	mock.ExpectQuery(`(?s)^SELECT\s+id.*FROM\s+tenants`).
		WithArgs(int64(10)).
		WillReturnError(errors.New("conn reset"))
	if _, err := repo.GetByID(context.Background(), 10); err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected db error, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)^UPDATE\s+tenants\s+SET\s+name\s*=\s*\$2,\s*is_active\s*=\s*\$3,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1`
	mock.ExpectQuery(q).
		WithArgs(int64(1), "Renamed", true).
		WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(int64(1), "Renamed", "acme", true, now, now))

	got, err := repo.Update(context.Background(), &models.Tenant{ID: 1, Name: "Renamed", IsActive: true})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.Name != "Renamed" {
		t.Fatalf("unexpected tenant: %+v", got)
	}
}

func TestSubdomainExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.SubdomainExists(context.Background(), "acme")
	if err != nil || !ok {
		t.Fatalf("SubdomainExists = %v, %v", ok, err)
	}

	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS`).
		WithArgs("acme").
		WillReturnError(errors.New("db down"))
	if _, err := repo.SubdomainExists(context.Background(), "acme"); err == nil {
		t.Fatalf("expected error")
	}
}
