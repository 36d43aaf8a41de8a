package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

const userColumns = `id, tenant_id, username, password_hash, role, is_active, created_at, last_login_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var role string
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.TenantID, &u.Username, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (tenant_id, username, password_hash, role, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.TenantID, user.Username, user.PasswordHash, string(user.Role), user.IsActive).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, tenantID int64, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE tenant_id = $1 AND username = $2`

	return one(scanUser(r.db.QueryRowContext(ctx, query, tenantID, username)))
}

func (r *PostgresRepository) GetByID(ctx context.Context, tenantID, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE tenant_id = $1 AND id = $2`

	return one(scanUser(r.db.QueryRowContext(ctx, query, tenantID, id)))
}

func (r *PostgresRepository) List(ctx context.Context, tenantID int64) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE tenant_id = $1
		 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	query := `UPDATE users SET role = $3, is_active = $4
		 WHERE tenant_id = $1 AND id = $2
		 RETURNING ` + userColumns

	return one(scanUser(r.db.QueryRowContext(ctx, query, user.TenantID, user.ID, string(user.Role), user.IsActive)))
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, tenantID, id int64, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $3
		 WHERE tenant_id = $1 AND id = $2`

	return affectedOne(r.db.ExecContext(ctx, query, tenantID, id, passwordHash))
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, tenantID, id int64, at time.Time) error {
	query :=
		`UPDATE users SET last_login_at = $3
		 WHERE tenant_id = $1 AND id = $2`

	return affectedOne(r.db.ExecContext(ctx, query, tenantID, id, at))
}

func (r *PostgresRepository) Delete(ctx context.Context, tenantID, id int64) error {
	query :=
		`DELETE FROM users
		 WHERE tenant_id = $1 AND id = $2`

	return affectedOne(r.db.ExecContext(ctx, query, tenantID, id))
}

func one(u *models.User, err error) (*models.User, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func affectedOne(res sql.Result, err error) error {
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
