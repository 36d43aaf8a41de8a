package models

import "time"

// Tenant is an isolated organization. Subdomain is stored lower-case and is
// unique across all tenants.
type Tenant struct {
	ID        int64
	Name      string
	Subdomain string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
