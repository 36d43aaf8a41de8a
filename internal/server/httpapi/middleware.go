package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/rbac"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type requestIDKey struct{}

const maxRequestIDLength = 128

// RequestID returns the id assigned to the request by the server.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware keeps a caller supplied X-Request-ID or mints one,
// and echoes it on the response.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.RequestIDHeaderName)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(common.RequestIDHeaderName, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observeMiddleware records the request duration by route template and
// writes one access log line.
func (s *Server) observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		d := time.Since(start)
		s.metrics.ObserveHTTP(route, r.Method, rec.status, d)
		s.logger.Debug(r.Context(), "request", "method", r.Method, "route", route,
			"status", rec.status, "duration", d, "request_id", RequestID(r.Context()))
	})
}

// hintExtractor finds the tenant a request is addressed to. It looks at the
// X-Tenant header, then the /tenant/{tenant} path prefix, then a
// "<tenant>.<baseDomain>" Host.
type hintExtractor struct {
	baseDomain string
}

func (h hintExtractor) hint(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(common.TenantHeaderName)); v != "" {
		return v
	}
	if v := mux.Vars(r)["tenant"]; v != "" {
		return v
	}
	return h.fromHost(r.Host)
}

func (h hintExtractor) fromHost(hostport string) string {
	if h.baseDomain == "" {
		return ""
	}
	host := hostport
	if hst, _, err := net.SplitHostPort(hostport); err == nil {
		host = hst
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return ""
	}

	prefix, ok := strings.CutSuffix(host, "."+strings.ToLower(h.baseDomain))
	if !ok || prefix == "" || strings.Contains(prefix, ".") {
		return ""
	}
	switch prefix {
	case "www", "api":
		return ""
	}
	return prefix
}

func bearerToken(r *http.Request) string {
	v := r.Header.Get(common.AuthorizationHeaderName)
	scheme, token, ok := strings.Cut(v, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type authedHandler func(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext)

// protect runs the guard before h. An empty capability only requires a
// valid token for the addressed tenant.
func (s *Server) protect(capability rbac.Capability, h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			ac  *auth.AuthContext
			err error
		)
		token, hint := bearerToken(r), s.hints.hint(r)
		if capability == "" {
			ac, err = s.guard.RequireAuthenticated(r.Context(), token, hint)
		} else {
			ac, err = s.guard.Authorize(r.Context(), token, hint, capability)
		}
		if err != nil {
			s.logger.Info(r.Context(), "request denied", "kind", kindOf(err), "tenant_hint", hint,
				"request_id", RequestID(r.Context()))
			s.writeError(w, r, err)
			return
		}

		h(w, r.WithContext(auth.WithAuthContext(r.Context(), ac)), ac)
	}
}
