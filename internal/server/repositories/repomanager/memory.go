package repomanager

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/books"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/tenants"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/users"
)

// MemoryDSN selects the in-memory manager instead of PostgreSQL.
const MemoryDSN = "memory"

// MemoryRepositoryManager serves process-local repositories and ignores the
// DBTX handles passed to it. Transactions are serialized but not rolled
// back, so it suits local runs and tests only.
type MemoryRepositoryManager struct {
	txMu          sync.Mutex
	tenants       *tenants.MemoryRepository
	users         *users.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
	books         *books.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		tenants:       tenants.NewMemoryRepository(),
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
		books:         books.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *MemoryRepositoryManager) RunInTx(ctx context.Context, _ *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, nil)
}

func (m *MemoryRepositoryManager) Tenants(dbx.DBTX) tenants.Repository { return m.tenants }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}

func (m *MemoryRepositoryManager) Books(dbx.DBTX) books.Repository { return m.books }
