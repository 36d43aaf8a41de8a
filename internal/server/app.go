// Package server initializes and runs the shelfkeeper server.
// It resolves secrets, opens storage, wires the auth services and starts
// the HTTP and gRPC endpoints, shutting both down on a signal.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/secret"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/config"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/guard"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/rbac"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/revocation"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/tenants"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/shelfkeeper/internal/server/grpc"
)

const revocationPurgeInterval = 10 * time.Minute

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	revocation revocation.Store
	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
	closers    []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	if err := app.resolveSecrets(ctx); err != nil {
		return nil, fmt.Errorf("secret resolution error: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rm, err := app.initStorage(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	if err := app.initRevocation(ctx, rm); err != nil {
		app.Close()
		return nil, err
	}

	trusted, err := config.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		app.Close()
		return nil, err
	}

	resolver := tenants.NewResolver(rm.Tenants(app.db), tenants.Options{
		CacheTTL:  c.TenantCacheTTL,
		CacheSize: c.TenantCacheSize,
	}, logger)
	codec := auth.NewTokenCodec(c.SigningKeyID, []byte(c.SecretKey))
	hasher := auth.NewPasswordHasher(auth.DefaultArgon)
	policy := rbac.DefaultPolicy()
	m := metrics.New()
	g := guard.New(codec, resolver, policy, logger, guard.WithObserver(m))

	sessions := services.NewSessionService(app.db, rm, resolver, hasher, codec, app.revocation, c, logger)

	app.httpServer = httpapi.NewServer(c.EndpointAddrHTTP, httpapi.Deps{
		Sessions:                sessions,
		Tenants:                 services.NewTenantService(app.db, rm, hasher, resolver, c, logger),
		Users:                   services.NewUserService(app.db, rm, hasher, logger),
		Books:                   services.NewBookService(app.db, rm),
		Guard:                   g,
		Metrics:                 m,
		Logger:                  logger,
		BaseDomain:              c.BaseDomain,
		LoginRateLimitPerMinute: c.LoginRateLimitPerMinute,
		TrustedProxies:          trusted,
	})
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, sessions, g, policy)

	return app, nil
}

// resolveSecrets replaces secretref: values in the config. The S3 provider
// is only built when a value asks for it.
func (app *App) resolveSecrets(ctx context.Context) error {
	providers := []secret.Provider{secret.NewEnvProvider(), secret.NewFileProvider()}

	if name, _, ok := secret.ParseSecretRef(app.config.SecretKey); ok && name == "s3" {
		p, err := secret.NewS3Provider(ctx, secret.S3Options{
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
			AccessKey:    app.config.S3RootUser,
			SecretKey:    app.config.S3RootPassword,
		})
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}

	r := secret.NewResolver(providers...)
	defer r.Close()

	v, err := r.ResolveValue(ctx, app.config.SecretKey)
	if err != nil {
		return err
	}
	app.config.SecretKey = v
	return nil
}

func (app *App) initStorage(ctx context.Context) (repomanager.RepositoryManager, error) {
	if app.config.DatabaseDSN == repomanager.MemoryDSN {
		app.logger.Warn(ctx, "using in-memory storage, data is lost on exit")
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return rm, nil
}

func (app *App) initRevocation(ctx context.Context, rm repomanager.RepositoryManager) error {
	switch app.config.RevocationStore {
	case config.RevocationStoreRedis:
		client, err := revocation.NewRedisClient(ctx, app.config.RedisURL)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, client)
		app.revocation = revocation.NewRedisStore(client)
	case config.RevocationStorePostgres:
		if app.db == nil {
			return errors.New("postgres revocation store needs a database dsn")
		}
		app.revocation = revocation.NewPostgresStore(rm.RefreshTokens(app.db))
	default:
		app.revocation = revocation.NewMemoryStore()
	}
	return nil
}

// Close releases storage handles. It is safe to call more than once.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) run(ctx context.Context, cancelFunc context.CancelFunc, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		app.logger.Error(ctx, name+" stopped", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...",
		"http", app.config.EndpointAddrHTTP,
		"grpc", app.config.EndpointAddrGRPC,
		"revocation_store", app.config.RevocationStore)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.run(ctx, cancelFunc, "http server", app.httpServer.Run)
	}()
	go func() {
		defer wg.Done()
		app.run(ctx, cancelFunc, "grpc server", app.grpcServer.Run)
	}()

	if ps, ok := app.revocation.(*revocation.PostgresStore); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ps.RunPurger(ctx, revocationPurgeInterval, app.logger)
		}()
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
}
