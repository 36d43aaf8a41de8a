package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/books"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/tenants"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a DBTX, so the same
// service code runs against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	// RunInTx runs fn atomically; repositories obtained from tx take part
	// in the same unit of work.
	RunInTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error
	Tenants(db dbx.DBTX) tenants.Repository
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Books(db dbx.DBTX) books.Repository
}
