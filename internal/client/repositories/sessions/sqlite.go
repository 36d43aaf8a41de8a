package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, tenant string) (*Session, error) {
	s := &Session{Tenant: tenant}
	var expires int64
	err := r.db.QueryRowContext(ctx, `
		SELECT username, access_token, refresh_token, expires_at
		FROM sessions WHERE tenant = ?`, tenant).
		Scan(&s.Username, &s.AccessToken, &s.RefreshToken, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session[%s]: %w", tenant, err)
	}
	s.ExpiresAt = time.Unix(expires, 0)
	return s, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (tenant, username, access_token, refresh_token, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant) DO UPDATE SET
			username = excluded.username,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at
	`, s.Tenant, s.Username, s.AccessToken, s.RefreshToken, s.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save session[%s]: %w", s.Tenant, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, tenant string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE tenant = ?`, tenant)
	if err != nil {
		return fmt.Errorf("failed to delete session[%s]: %w", tenant, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant, username, access_token, refresh_token, expires_at
		FROM sessions ORDER BY tenant`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var result []*Session
	for rows.Next() {
		s := &Session{}
		var expires int64
		if err := rows.Scan(&s.Tenant, &s.Username, &s.AccessToken, &s.RefreshToken, &expires); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		s.ExpiresAt = time.Unix(expires, 0)
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}

	return result, nil
}
