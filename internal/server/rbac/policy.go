// Package rbac decides whether a role may use a capability. Grants are an
// explicit table: no role inherits from another, and anything not listed
// is denied.
package rbac

import (
	"slices"

	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
)

// Capability names a resource-action pair.
type Capability string

const (
	BooksRead    Capability = "books:read"
	BooksCreate  Capability = "books:create"
	BooksUpdate  Capability = "books:update"
	BooksDelete  Capability = "books:delete"
	UsersManage  Capability = "users:manage"
	TenantManage Capability = "tenant:manage"
)

// DefaultGrants is the production role table.
var DefaultGrants = map[models.Role][]Capability{
	models.RoleMember:    {BooksRead},
	models.RoleLibrarian: {BooksRead, BooksCreate, BooksUpdate},
	models.RoleAdmin:     {BooksRead, BooksCreate, BooksUpdate, BooksDelete, UsersManage, TenantManage},
}

// Policy is immutable after construction and safe for concurrent use.
type Policy struct {
	grants map[models.Role]map[Capability]struct{}
}

func NewPolicy(grants map[models.Role][]Capability) *Policy {
	p := &Policy{grants: make(map[models.Role]map[Capability]struct{}, len(grants))}
	for role, caps := range grants {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		p.grants[role] = set
	}
	return p
}

func DefaultPolicy() *Policy {
	return NewPolicy(DefaultGrants)
}

func (p *Policy) IsAllowed(role models.Role, capability Capability) bool {
	caps, ok := p.grants[role]
	if !ok {
		return false
	}
	_, ok = caps[capability]
	return ok
}

// Capabilities lists what role may do, sorted by name.
func (p *Policy) Capabilities(role models.Role) []Capability {
	out := make([]Capability, 0, len(p.grants[role]))
	for c := range p.grants[role] {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
