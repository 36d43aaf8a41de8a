package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/auth"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
)

// Login outcome labels.
const (
	loginSuccess            = "success"
	loginInvalidCredentials = "invalid_credentials"
	loginTenantNotFound     = "tenant_not_found"
	loginThrottled          = "throttled"
	loginError              = "error"
)

func (s *Server) handleRegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req registerTenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.tenants.Register(r.Context(), req.Name, req.Subdomain)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerTenantResponse{
		Tenant:        s.toTenantResponse(t),
		AdminUsername: services.BootstrapAdminUsername,
	})
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	t, err := s.tenants.Get(r.Context(), ac)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toTenantResponse(t))
}

func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	var req updateTenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.tenants.Update(r.Context(), ac, req.Name, req.IsActive)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toTenantResponse(t))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	hint := s.hints.hint(r)
	if hint == "" {
		hint = req.Tenant
	}

	if !s.limiter.allow(s.loginKey(r, hint, req.Username)) {
		s.metrics.ObserveLogin(loginThrottled)
		w.Header().Set("Retry-After", "60")
		s.writeError(w, r, errTooManyAttempts)
		return
	}

	pair, err := s.sessions.Login(r.Context(), hint, req.Username, req.Password)
	if err != nil {
		s.metrics.ObserveLogin(loginResult(err))
		s.logger.Info(r.Context(), "login failed", "kind", kindOf(err), "tenant_hint", hint,
			"request_id", RequestID(r.Context()))
		s.writeError(w, r, err)
		return
	}

	s.metrics.ObserveLogin(loginSuccess)
	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return loginInvalidCredentials
	case errors.Is(err, common.ErrTenantNotFound):
		return loginTenantNotFound
	default:
		return loginError
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	pair, err := s.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.sessions.ChangePassword(r.Context(), ac, req.OldPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	u, err := s.users.Me(r.Context(), ac)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	list, err := s.users.List(r.Context(), ac)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var role models.Role
	if req.Role != "" {
		parsed, err := models.ParseRole(req.Role)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrValidation, err))
			return
		}
		role = parsed
	}

	u, err := s.users.Create(r.Context(), ac, req.Username, req.Password, role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.users.Get(r.Context(), ac, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var role *models.Role
	if req.Role != nil {
		parsed, err := models.ParseRole(*req.Role)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrValidation, err))
			return
		}
		role = &parsed
	}

	u, err := s.users.Update(r.Context(), ac, id, role, req.IsActive)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.users.Delete(r.Context(), ac, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	list, err := s.books.List(r.Context(), ac)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]bookResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toBookResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.books.Create(r.Context(), ac, services.BookInput(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookResponse(b))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.books.Get(r.Context(), ac, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(b))
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.books.Update(r.Context(), ac, id, services.BookInput(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(b))
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.books.Delete(r.Context(), ac, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
