package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Tenant struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
	IsActive  bool   `json:"is_active"`
	URL       string `json:"url"`
}

type Registration struct {
	Tenant        Tenant `json:"tenant"`
	AdminUsername string `json:"admin_username"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type Book struct {
	ID     int64  `json:"id,omitempty"`
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn,omitempty"`
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// APIClient talks to the shelfkeeper HTTP API. The tenant is sent in the
// X-Tenant header, so one client serves every tenant.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type request struct {
	method string
	path   string
	tenant string
	token  string
	body   any
}

func (c *APIClient) do(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return err
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.tenant != "" {
		req.Header.Set(common.TenantHeaderName, r.tenant)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
	if eb.Error == "" {
		eb.Error = http.StatusText(resp.StatusCode)
	}

	e := NewAPIError(resp.StatusCode, eb.Error)
	e.RequestID = eb.RequestID
	return e
}

// Ping checks that the server answers its health probe.
func (c *APIClient) Ping(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodGet, path: "/healthz"}, nil)
}

func (c *APIClient) RegisterTenant(ctx context.Context, name, subdomain string) (*Registration, error) {
	out := &Registration{}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/tenants/register",
		body:   map[string]string{"name": name, "subdomain": subdomain},
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Login(ctx context.Context, tenant, username string, password []byte) (*TokenPair, error) {
	out := &TokenPair{}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		tenant: tenant,
		body:   map[string]string{"username": username, "password": string(password)},
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	out := &TokenPair{}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/refresh",
		body:   map[string]string{"refresh_token": refreshToken},
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/logout",
		body:   map[string]string{"refresh_token": refreshToken},
	}, nil)
}

func (c *APIClient) ChangePassword(ctx context.Context, tenant, token string, oldPassword, newPassword []byte) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/change-password",
		tenant: tenant,
		token:  token,
		body:   map[string]string{"old_password": string(oldPassword), "new_password": string(newPassword)},
	}, nil)
}

func (c *APIClient) Me(ctx context.Context, tenant, token string) (*User, error) {
	out := &User{}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/users/me", tenant: tenant, token: token}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) ListBooks(ctx context.Context, tenant, token string) ([]Book, error) {
	var out []Book
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/books", tenant: tenant, token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) CreateBook(ctx context.Context, tenant, token string, b Book) (*Book, error) {
	out := &Book{}
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/books", tenant: tenant, token: token, body: b}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) DeleteBook(ctx context.Context, tenant, token string, id int64) error {
	if id <= 0 {
		return errors.New("book id must be positive")
	}
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/api/books/" + strconv.FormatInt(id, 10),
		tenant: tenant,
		token:  token,
	}, nil)
}
