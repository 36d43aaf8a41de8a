package books

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
)

var cols = []string{"id", "tenant_id", "title", "author", "isbn", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)^INSERT\s+INTO\s+books\s*\(tenant_id,\s*title,\s*author,\s*isbn\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*NULLIF\(\$4,\s*''\)\)\s*RETURNING`
	mock.ExpectQuery(q).
		WithArgs(int64(1), "Dune", "Frank Herbert", "").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(10), int64(1), "Dune", "Frank Herbert", nil, now, now))

	got, err := repo.Create(context.Background(), &models.Book{TenantID: 1, Title: "Dune", Author: "Frank Herbert"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 10 || got.ISBN != "" {
		t.Fatalf("unexpected book: %+v", got)
	}
}

func TestGetByID_ScopedByTenant(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*tenant_id,\s*title,\s*author,\s*isbn,\s*created_at,\s*updated_at\s+FROM\s+books\s+WHERE\s+tenant_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2$`
	mock.ExpectQuery(q).
		WithArgs(int64(2), int64(10)).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), 2, 10); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id.*FROM\s+books\s+WHERE\s+tenant_id\s*=\s*\$1\s+ORDER\s+BY\s+title,\s*id$`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), int64(1), "A", "x", "9780306406157", now, now).
			AddRow(int64(2), int64(1), "B", "y", nil, now, now))

	got, err := repo.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 || got[0].ISBN != "9780306406157" || got[1].ISBN != "" {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id.*FROM\s+books`).
		WithArgs(int64(1)).
		WillReturnError(errors.New("db down"))

	_, err := repo.List(context.Background(), 1)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)^UPDATE\s+books\s+SET\s+title\s*=\s*\$3,\s*author\s*=\s*\$4,\s*isbn\s*=\s*NULLIF\(\$5,\s*''\),\s*updated_at\s*=\s*now\(\)\s+WHERE\s+tenant_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2`
	mock.ExpectQuery(q).
		WithArgs(int64(1), int64(10), "Dune Messiah", "Frank Herbert", "0441172717").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(10), int64(1), "Dune Messiah", "Frank Herbert", "0441172717", now, now))

	got, err := repo.Update(context.Background(), &models.Book{ID: 10, TenantID: 1, Title: "Dune Messiah", Author: "Frank Herbert", ISBN: "0441172717"})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.Title != "Dune Messiah" {
		t.Fatalf("unexpected book: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+books\s+WHERE\s+tenant_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2$`
	mock.ExpectExec(q).WithArgs(int64(1), int64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(2), int64(10)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 1, 10); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), 2, 10); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}
