package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
)

var errTooManyAttempts = errors.New("too many login attempts")

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps an error to a status code and the message shown to the
// client. Only validation errors carry detail; everything else is reported
// by its kind.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, common.ErrUnauthenticated.Error()
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, common.ErrInvalidCredentials.Error()
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, common.ErrTokenExpired.Error()
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrMalformedToken):
		return http.StatusUnauthorized, common.ErrInvalidToken.Error()
	case errors.Is(err, common.ErrWrongTenant):
		return http.StatusForbidden, common.ErrWrongTenant.Error()
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, common.ErrForbidden.Error()
	case errors.Is(err, common.ErrAccountInactive):
		return http.StatusForbidden, common.ErrAccountInactive.Error()
	case errors.Is(err, common.ErrTenantNotFound):
		return http.StatusNotFound, common.ErrTenantNotFound.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, common.ErrorNotFound.Error()
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, common.ErrAlreadyExists.Error()
	case errors.Is(err, errTooManyAttempts):
		return http.StatusTooManyRequests, errTooManyAttempts.Error()
	case errors.Is(err, common.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, common.ErrBackendUnavailable.Error()
	default:
		return http.StatusInternalServerError, common.ErrorInternal.Error()
	}
}

// kindOf is the log-safe name of err.
func kindOf(err error) string {
	code, msg := statusFor(err)
	if code == http.StatusBadRequest {
		return common.ErrValidation.Error()
	}
	return msg
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="shelfkeeper"`)
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "error", err, "request_id", RequestID(r.Context()))
	}
	writeJSON(w, code, errorBody{Error: msg, RequestID: RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
