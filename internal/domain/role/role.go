package role

import "errors"

// Permission is a bitmask of allowed actions.
type Permission int

const (
	PermRead    Permission = 0x01
	PermComment Permission = 0x02
	PermCreate  Permission = 0x04
	PermDelete  Permission = 0x08
	PermAdmin   Permission = 0xFF
)

const (
	NameUser  = "User"
	NameAdmin = "Admin"
)

var ErrNotFound = errors.New("role not found")

type Role struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Permissions Permission `json:"permissions"`
	Default     bool       `json:"default"`
}

// Has reports whether every bit of p is set.
func (m Permission) Has(p Permission) bool {
	return m&p == p
}

func (r *Role) HasPermission(p Permission) bool {
	if r == nil {
		return false
	}
	return r.Permissions.Has(p)
}

func (r *Role) AddPermission(p Permission) {
	if !r.HasPermission(p) {
		r.Permissions |= p
	}
}

func (r *Role) RemovePermission(p Permission) {
	if r.HasPermission(p) {
		r.Permissions &^= p
	}
}

func (r *Role) ResetPermissions() {
	r.Permissions = 0
}

// Seed is the fixed role table written by the setup command.
func Seed() []Role {
	return []Role{
		{Name: NameUser, Permissions: PermRead | PermComment | PermCreate, Default: true},
		{Name: NameAdmin, Permissions: PermAdmin},
	}
}
