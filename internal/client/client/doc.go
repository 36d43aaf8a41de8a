// Package client contains the client-side building blocks of shelfctl.
//
// APIClient speaks the shelfkeeper HTTP API and turns non-2xx answers into
// *APIError values that unwrap to sentinels such as ErrUnauthorized or
// ErrForbidden, so callers branch with errors.Is. InitDatabase opens the
// local SQLite file holding saved sessions and applies its migrations.
package client
