// Package httpapi is the JSON HTTP transport of shelfkeeper. Every protected
// route passes through the request guard before reaching a service.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/guard"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the HTTP server routes to.
type Deps struct {
	Sessions *services.SessionService
	Tenants  *services.TenantService
	Users    *services.UserService
	Books    *services.BookService
	Guard    *guard.Guard
	Metrics  *metrics.Metrics
	Logger   logging.Logger

	// BaseDomain lets the server read the tenant from "<tenant>.<BaseDomain>" hosts.
	BaseDomain string
	// LoginRateLimitPerMinute bounds login attempts per client, tenant and username.
	LoginRateLimitPerMinute int
	// TrustedProxies are peers allowed to name the client in X-Forwarded-For.
	TrustedProxies []netip.Prefix
}

type Server struct {
	address  string
	sessions *services.SessionService
	tenants  *services.TenantService
	users    *services.UserService
	books    *services.BookService
	guard    *guard.Guard
	metrics  *metrics.Metrics
	logger   logging.Logger
	limiter  *loginLimiter
	ips      ipResolver
	hints    hintExtractor
	router   *mux.Router
}

func NewServer(address string, d Deps) *Server {
	s := &Server{
		address:  address,
		sessions: d.Sessions,
		tenants:  d.Tenants,
		users:    d.Users,
		books:    d.Books,
		guard:    d.Guard,
		metrics:  d.Metrics,
		logger:   d.Logger.With("module", "http_server"),
		limiter:  newLoginLimiter(d.LoginRateLimitPerMinute, 10*time.Minute),
		ips:      ipResolver{trusted: d.TrustedProxies},
		hints:    hintExtractor{baseDomain: d.BaseDomain},
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
