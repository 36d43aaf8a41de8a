package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

const bookColumns = `id, tenant_id, title, author, isbn, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*models.Book, error) {
	b := &models.Book{}
	var isbn sql.NullString
	if err := row.Scan(&b.ID, &b.TenantID, &b.Title, &b.Author, &isbn, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	b.ISBN = isbn.String
	return b, nil
}

func (r *PostgresRepository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	query := `INSERT INTO books (tenant_id, title, author, isbn)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 RETURNING ` + bookColumns

	return scanBook(r.db.QueryRowContext(ctx, query, book.TenantID, book.Title, book.Author, book.ISBN))
}

func (r *PostgresRepository) GetByID(ctx context.Context, tenantID, id int64) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books
		 WHERE tenant_id = $1 AND id = $2`

	return scanBook(r.db.QueryRowContext(ctx, query, tenantID, id))
}

func (r *PostgresRepository) List(ctx context.Context, tenantID int64) ([]*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books
		 WHERE tenant_id = $1
		 ORDER BY title, id`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, book *models.Book) (*models.Book, error) {
	query := `UPDATE books SET title = $3, author = $4, isbn = NULLIF($5, ''), updated_at = now()
		 WHERE tenant_id = $1 AND id = $2
		 RETURNING ` + bookColumns

	return scanBook(r.db.QueryRowContext(ctx, query, book.TenantID, book.ID, book.Title, book.Author, book.ISBN))
}

func (r *PostgresRepository) Delete(ctx context.Context, tenantID, id int64) error {
	query :=
		`DELETE FROM books
		 WHERE tenant_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
