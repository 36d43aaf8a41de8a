package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/config"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/guard"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/rbac"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/revocation"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/tenants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var cheapArgon = auth.ArgonParams{Memory: 64, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}

type testEnv struct {
	srv     *Server
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, loginPerMinute int) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AccessTokenValidityDuration:  30 * time.Minute,
		RefreshTokenValidityDuration: 24 * time.Hour,
		BaseDomain:                   "books.example",
		TenantURLPattern:             config.TenantURLSubdomain,
		BootstrapAdminPassword:       "ChangeMe123!",
	}
	log := logging.Nop()
	rm := repomanager.NewMemoryRepositoryManager()
	hasher := auth.NewPasswordHasher(cheapArgon)
	codec := auth.NewTokenCodec("v1", []byte(testSecret))
	resolver := tenants.NewResolver(rm.Tenants(nil), tenants.Options{CacheTTL: time.Minute, CacheSize: 16}, log)
	m := metrics.New()

	srv := NewServer("127.0.0.1:0", Deps{
		Sessions:                services.NewSessionService(nil, rm, resolver, hasher, codec, revocation.NewMemoryStore(), cfg, log),
		Tenants:                 services.NewTenantService(nil, rm, hasher, resolver, cfg, log),
		Users:                   services.NewUserService(nil, rm, hasher, log),
		Books:                   services.NewBookService(nil, rm),
		Guard:                   guard.New(codec, resolver, rbac.DefaultPolicy(), log, guard.WithObserver(m)),
		Metrics:                 m,
		Logger:                  log,
		BaseDomain:              cfg.BaseDomain,
		LoginRateLimitPerMinute: loginPerMinute,
	})
	return &testEnv{srv: srv, metrics: m}
}

type call struct {
	method  string
	path    string
	body    any
	token   string
	tenant  string
	host    string
	headers map[string]string
}

func (e *testEnv) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if c.body != nil {
		if s, ok := c.body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+c.token)
	}
	if c.tenant != "" {
		req.Header.Set(common.TenantHeaderName, c.tenant)
	}
	if c.host != "" {
		req.Host = c.host
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func (e *testEnv) register(t *testing.T, name, sub string) registerTenantResponse {
	t.Helper()
	rec := e.do(t, call{method: http.MethodPost, path: "/api/tenants/register",
		body: registerTenantRequest{Name: name, Subdomain: sub}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[registerTenantResponse](t, rec)
}

func (e *testEnv) login(t *testing.T, tenant, username, password string) tokenResponse {
	t.Helper()
	rec := e.do(t, call{method: http.MethodPost, path: "/api/auth/login", tenant: tenant,
		body: loginRequest{Username: username, Password: password}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[tokenResponse](t, rec)
}

func TestRegisterLoginAndManageBooks(t *testing.T) {
	e := newTestEnv(t, 0)

	reg := e.register(t, "Acme Books", "Acme")
	assert.Equal(t, "acme", reg.Tenant.Subdomain)
	assert.Equal(t, "https://acme.books.example", reg.Tenant.URL)
	assert.Equal(t, services.BootstrapAdminUsername, reg.AdminUsername)

	tok := e.login(t, "acme", "admin", "ChangeMe123!")
	assert.Equal(t, services.TokenType, tok.TokenType)
	assert.EqualValues(t, 1800, tok.ExpiresIn)
	assert.NotEmpty(t, tok.RefreshToken)

	rec := e.do(t, call{method: http.MethodPost, path: "/api/books", token: tok.AccessToken, tenant: "acme",
		body: bookRequest{Title: "Dune", Author: "Frank Herbert", ISBN: "978-0-441-17271-9"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	book := decode[bookResponse](t, rec)
	assert.Equal(t, "9780441172719", book.ISBN)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/books", token: tok.AccessToken, tenant: "acme"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]bookResponse](t, rec), 1)

	rec = e.do(t, call{method: http.MethodPut, path: "/api/books/" + itoa(book.ID), token: tok.AccessToken, tenant: "acme",
		body: bookRequest{Title: "Dune Messiah", Author: "Frank Herbert"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Dune Messiah", decode[bookResponse](t, rec).Title)

	rec = e.do(t, call{method: http.MethodDelete, path: "/api/books/" + itoa(book.ID), token: tok.AccessToken, tenant: "acme"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/books/" + itoa(book.ID), token: tok.AccessToken, tenant: "acme"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/tenants/me", token: tok.AccessToken, tenant: "acme"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme Books", decode[tenantResponse](t, rec).Name)
}

func TestRegisterTenant_Errors(t *testing.T) {
	e := newTestEnv(t, 0)
	e.register(t, "Acme", "acme")

	rec := e.do(t, call{method: http.MethodPost, path: "/api/tenants/register",
		body: registerTenantRequest{Name: "Other", Subdomain: "ACME"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/tenants/register",
		body: registerTenantRequest{Name: "Other", Subdomain: "www"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/tenants/register",
		body: `{"name":"X","subdomain":"x","extra":1}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/tenants/register",
		body: `{"name":"X","subdomain":"x"}{}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemberCannotManage(t *testing.T) {
	e := newTestEnv(t, 0)
	e.register(t, "Acme", "acme")
	admin := e.login(t, "acme", "admin", "ChangeMe123!")

	rec := e.do(t, call{method: http.MethodPost, path: "/api/users", token: admin.AccessToken, tenant: "acme",
		body: createUserRequest{Username: "reader", Password: "Password1", Role: "Member"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "member", decode[userResponse](t, rec).Role)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/books", token: admin.AccessToken, tenant: "acme",
		body: bookRequest{Title: "Dune", Author: "Frank Herbert"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	book := decode[bookResponse](t, rec)

	member := e.login(t, "acme", "reader", "Password1")

	rec = e.do(t, call{method: http.MethodGet, path: "/api/books", token: member.AccessToken, tenant: "acme"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, call{method: http.MethodDelete, path: "/api/books/" + itoa(book.ID), token: member.AccessToken, tenant: "acme"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, common.ErrForbidden.Error(), decode[errorBody](t, rec).Error)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/users", token: member.AccessToken, tenant: "acme"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/users/me", token: member.AccessToken, tenant: "acme"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reader", decode[userResponse](t, rec).Username)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/users", token: admin.AccessToken, tenant: "acme",
		body: createUserRequest{Username: "bad", Password: "Password1", Role: "owner"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCrossTenantTokenIsRejected(t *testing.T) {
	e := newTestEnv(t, 0)
	e.register(t, "Acme", "acme")
	e.register(t, "Globex", "globex")
	acme := e.login(t, "acme", "admin", "ChangeMe123!")

	rec := e.do(t, call{method: http.MethodGet, path: "/api/books", token: acme.AccessToken, tenant: "globex"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, common.ErrWrongTenant.Error(), decode[errorBody](t, rec).Error)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/books", token: acme.AccessToken, tenant: "nowhere"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Credentials of one tenant do not log in to another.
	rec = e.do(t, call{method: http.MethodPost, path: "/api/auth/login", tenant: "nowhere",
		body: loginRequest{Username: "admin", Password: "ChangeMe123!"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTenantHintSources(t *testing.T) {
	e := newTestEnv(t, 0)
	e.register(t, "Acme", "acme")

	rec := e.do(t, call{method: http.MethodPost, path: "/api/auth/login", host: "acme.books.example",
		body: loginRequest{Username: "admin", Password: "ChangeMe123!"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decode[tokenResponse](t, rec)

	rec = e.do(t, call{method: http.MethodGet, path: "/tenant/acme/api/books", token: tok.AccessToken})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/books", token: tok.AccessToken, host: "ACME.books.example:8080"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/auth/login",
		body: loginRequest{Tenant: "acme", Username: "admin", Password: "ChangeMe123!"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The path prefix names the tenant even behind another tenant's host.
	e.register(t, "Beta", "beta")
	betaTok := e.login(t, "beta", "admin", "ChangeMe123!")
	rec = e.do(t, call{method: http.MethodGet, path: "/tenant/beta/api/books", token: betaTok.AccessToken,
		host: "acme.books.example"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRefreshRotationAndLogout(t *testing.T) {
	e := newTestEnv(t, 0)
	e.register(t, "Acme", "acme")
	tok := e.login(t, "acme", "admin", "ChangeMe123!")

	rec := e.do(t, call{method: http.MethodPost, path: "/api/auth/refresh", body: refreshRequest{RefreshToken: tok.RefreshToken}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode[tokenResponse](t, rec)
	assert.NotEqual(t, tok.RefreshToken, next.RefreshToken)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/auth/refresh", body: refreshRequest{RefreshToken: tok.RefreshToken}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = e.do(t, call{method: http.MethodPost, path: "/api/auth/refresh", body: refreshRequest{RefreshToken: next.AccessToken}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/auth/logout", body: refreshRequest{RefreshToken: next.RefreshToken}})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/auth/refresh", body: refreshRequest{RefreshToken: next.RefreshToken}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword(t *testing.T) {
	e := newTestEnv(t, 0)
	e.register(t, "Acme", "acme")
	tok := e.login(t, "acme", "admin", "ChangeMe123!")

	rec := e.do(t, call{method: http.MethodPost, path: "/api/auth/change-password", token: tok.AccessToken, tenant: "acme",
		body: changePasswordRequest{OldPassword: "wrong-password", NewPassword: "BrandNew123"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/auth/change-password", token: tok.AccessToken, tenant: "acme",
		body: changePasswordRequest{OldPassword: "ChangeMe123!", NewPassword: "BrandNew123"}})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	e.login(t, "acme", "admin", "BrandNew123")
}

func TestDeactivatedTenantLocksEveryone(t *testing.T) {
	e := newTestEnv(t, 0)
	e.register(t, "Acme", "acme")
	tok := e.login(t, "acme", "admin", "ChangeMe123!")

	off := false
	rec := e.do(t, call{method: http.MethodPut, path: "/api/tenants/me", token: tok.AccessToken, tenant: "acme",
		body: updateTenantRequest{IsActive: &off}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, call{method: http.MethodGet, path: "/api/books", token: tok.AccessToken, tenant: "acme"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/auth/login", tenant: "acme",
		body: loginRequest{Username: "admin", Password: "ChangeMe123!"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissingTokenIsUnauthenticated(t *testing.T) {
	e := newTestEnv(t, 0)
	e.register(t, "Acme", "acme")

	rec := e.do(t, call{method: http.MethodGet, path: "/api/books", tenant: "acme"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Bearer realm="shelfkeeper"`, rec.Header().Get("WWW-Authenticate"))

	rec = e.do(t, call{method: http.MethodGet, path: "/api/books", tenant: "acme", token: "not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	e := newTestEnv(t, 2)
	e.register(t, "Acme", "acme")

	bad := call{method: http.MethodPost, path: "/api/auth/login", tenant: "acme",
		body: loginRequest{Username: "admin", Password: "nope-nope"}}
	for i := 0; i < 2; i++ {
		rec := e.do(t, bad)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := e.do(t, bad)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Other usernames keep their own budget.
	rec = e.do(t, call{method: http.MethodPost, path: "/api/auth/login", tenant: "acme",
		body: loginRequest{Username: "someone", Password: "nope-nope"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	e := newTestEnv(t, 2)
	e.register(t, "Acme", "acme")

	throttled := 0
	for i := 0; i < 10; i++ {
		rec := e.do(t, call{method: http.MethodPost, path: "/api/auth/login", tenant: "acme",
			headers: map[string]string{"X-Forwarded-For": "198.51.100." + strconv.Itoa(i+1)},
			body:    loginRequest{Username: "admin", Password: "nope-nope"}})
		if rec.Code == http.StatusTooManyRequests {
			throttled++
		}
	}
	assert.Equal(t, 8, throttled)
}

func TestHealthMetricsAndRequestID(t *testing.T) {
	e := newTestEnv(t, 0)

	rec := e.do(t, call{method: http.MethodGet, path: "/healthz", headers: map[string]string{common.RequestIDHeaderName: "req-123"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(common.RequestIDHeaderName))

	rec = e.do(t, call{method: http.MethodPost, path: "/api/auth/login", tenant: "missing",
		body: loginRequest{Username: "admin", Password: "x"}})
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[errorBody](t, rec)
	assert.NotEmpty(t, body.RequestID)
	assert.Equal(t, body.RequestID, rec.Header().Get(common.RequestIDHeaderName))

	rec = e.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.True(t, strings.Contains(out, `shelfkeeper_logins_total{result="tenant_not_found"} 1`), out)
	assert.True(t, strings.Contains(out, `shelfkeeper_http_request_duration_seconds_count{method="GET",route="/healthz",status="200"} 1`), out)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
