package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/shelfkeeper/internal/server/rbac"
	"github.com/gorilla/mux"
)

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.observeMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	s.mountAPI(r.PathPrefix("/api").Subrouter())
	// Path form for deployments without wildcard DNS: /tenant/{tenant}/api/...
	s.mountAPI(r.PathPrefix("/tenant/{tenant}/api").Subrouter())

	return r
}

func (s *Server) mountAPI(api *mux.Router) {
	api.HandleFunc("/tenants/register", s.handleRegisterTenant).Methods(http.MethodPost)
	api.HandleFunc("/tenants/me", s.protect(rbac.TenantManage, s.handleGetTenant)).Methods(http.MethodGet)
	api.HandleFunc("/tenants/me", s.protect(rbac.TenantManage, s.handleUpdateTenant)).Methods(http.MethodPut)

	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/auth/change-password", s.protect("", s.handleChangePassword)).Methods(http.MethodPost)

	api.HandleFunc("/users/me", s.protect("", s.handleMe)).Methods(http.MethodGet)
	api.HandleFunc("/users", s.protect(rbac.UsersManage, s.handleListUsers)).Methods(http.MethodGet)
	api.HandleFunc("/users", s.protect(rbac.UsersManage, s.handleCreateUser)).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}", s.protect(rbac.UsersManage, s.handleGetUser)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}", s.protect(rbac.UsersManage, s.handleUpdateUser)).Methods(http.MethodPut)
	api.HandleFunc("/users/{id:[0-9]+}", s.protect(rbac.UsersManage, s.handleDeleteUser)).Methods(http.MethodDelete)

	api.HandleFunc("/books", s.protect(rbac.BooksRead, s.handleListBooks)).Methods(http.MethodGet)
	api.HandleFunc("/books", s.protect(rbac.BooksCreate, s.handleCreateBook)).Methods(http.MethodPost)
	api.HandleFunc("/books/{id:[0-9]+}", s.protect(rbac.BooksRead, s.handleGetBook)).Methods(http.MethodGet)
	api.HandleFunc("/books/{id:[0-9]+}", s.protect(rbac.BooksUpdate, s.handleUpdateBook)).Methods(http.MethodPut)
	api.HandleFunc("/books/{id:[0-9]+}", s.protect(rbac.BooksDelete, s.handleDeleteBook)).Methods(http.MethodDelete)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
