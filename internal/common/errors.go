// Package common defines shared constants and sentinel errors used across
// shelfkeeper layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Authentication / authorization taxonomy. Messages are what callers
	// see, so they must not carry detail about which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrWrongTenant        = errors.New("wrong tenant")
	ErrForbidden          = errors.New("forbidden")
	ErrAccountInactive    = errors.New("account inactive")

	// ErrBackendUnavailable wraps connectivity/timeout failures of the
	// credential and revocation stores.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// Token codec errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrMalformedToken = errors.New("malformed token")
)

// Backend wraps err as ErrBackendUnavailable unless it already is one of the
// repository sentinels, which callers handle themselves.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrorNotFound) || errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, op, err)
}
