package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/client/client"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/config"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/services"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config *config.Config
	auth   *services.AuthService
	db     *sql.DB
	reader *bufio.Reader
	out    io.Writer

	mu     sync.Mutex
	mode   Mode
	tenant string
	user   string
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.SessionDB)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	api := client.NewAPIClient(c.ServerURL, c.RequestTimeout)
	as := services.NewAuthService(api, sessions.NewSQLiteRepository(db))

	return newApp(c, as, db, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, as *services.AuthService, db *sql.DB, in io.Reader, out io.Writer) *App {
	return &App{
		config: c,
		auth:   as,
		db:     db,
		reader: bufio.NewReader(in),
		out:    out,
		tenant: c.Tenant,
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.tenant
	if a.user != "" {
		s = a.user + "@" + s
	}
	if a.mode != "" {
		if s != "" {
			s += " "
		}
		s += string(a.mode)
	}
	return s
}

func (a *App) Run(ctx context.Context) {
	if a.db != nil {
		defer a.db.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Println("Welcome to shelfctl (type 'help' for commands)")
	a.restoreSession(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// restoreSession picks up a saved session for the configured tenant.
func (a *App) restoreSession(ctx context.Context) {
	if a.tenant == "" {
		return
	}
	list, err := a.auth.Sessions(ctx)
	if err != nil {
		log.Printf("error reading sessions: %v", err)
		return
	}
	for _, s := range list {
		if s.Tenant == a.tenant {
			a.user = s.Username
		}
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.auth.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
