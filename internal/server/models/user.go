package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of user roles. Rank is for display and sorting only;
// permissions come from the explicit rbac table.
type Role string

const (
	RoleMember    Role = "member"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

var roleRank = map[Role]int{
	RoleMember:    1,
	RoleLibrarian: 2,
	RoleAdmin:     3,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank orders roles for display. Unknown roles rank 0.
func (r Role) Rank() int {
	return roleRank[r]
}

func (r Role) String() string { return string(r) }

// ParseRole accepts any letter case ("Admin", "ADMIN").
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

type User struct {
	ID           int64
	TenantID     int64
	Username     string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}
