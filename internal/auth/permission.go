package auth

import (
	"sort"
	"strings"
)

// Permission is an atomic capability.
type Permission string

const (
	PermissionAny             Permission = "*"
	PermissionReadMetadata    Permission = "read-metadata"
	PermissionInvokeQuery     Permission = "invoke-query"
	PermissionInvokeUpdate    Permission = "invoke-update"
	PermissionAccessInternals Permission = "access-internals"
	PermissionAdministrate    Permission = "administrate"
)

// Mutating reports whether exercising p may change server state. Mutating
// permissions are only satisfiable by POST requests.
func (p Permission) Mutating() bool {
	return p == PermissionInvokeUpdate || p == PermissionAdministrate
}

func (p Permission) String() string { return string(p) }

// Role is a named, immutable set of permissions.
type Role struct {
	name        string
	permissions map[Permission]struct{}
}

// The role hierarchy: each role includes all permissions of its parent.
var (
	RoleNone  = newRole("none", nil)
	RoleUser  = newRole("user", &RoleNone, PermissionReadMetadata, PermissionInvokeQuery)
	RoleOwner = newRole("owner", &RoleUser, PermissionAccessInternals, PermissionInvokeUpdate)
	RoleAdmin = newRole("admin", &RoleOwner, PermissionAdministrate)
)

const rolePrefix = "ROLE_"

var roleLookup = map[string]Role{
	"NONE":  RoleNone,
	"USER":  RoleUser,
	"OWNER": RoleOwner,
	"ADMIN": RoleAdmin,
	// legacy aliases
	"READ": RoleUser,
	"FULL": RoleOwner,
}

func newRole(name string, parent *Role, exclusive ...Permission) Role {
	perms := make(map[Permission]struct{}, len(exclusive))
	if parent != nil {
		for p := range parent.permissions {
			perms[p] = struct{}{}
		}
	}
	for _, p := range exclusive {
		perms[p] = struct{}{}
	}
	return Role{name: name, permissions: perms}
}

// RoleFromString resolves a role by name or authority ("user", "ROLE_USER").
// Unknown or empty names resolve to RoleNone.
func RoleFromString(name string) Role {
	key := strings.ToUpper(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, rolePrefix)
	if r, ok := roleLookup[key]; ok {
		return r
	}
	return RoleNone
}

// KnownRole reports whether name resolves to a defined role.
func KnownRole(name string) bool {
	key := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), rolePrefix)
	_, ok := roleLookup[key]
	return ok
}

func (r Role) Name() string { return r.name }

// Authority is the role name with the ROLE_ prefix.
func (r Role) Authority() string { return rolePrefix + strings.ToUpper(r.name) }

// Grants reports whether r includes p. The wildcard permission is granted to
// every role.
func (r Role) Grants(p Permission) bool {
	if p == PermissionAny {
		return true
	}
	_, ok := r.permissions[p]
	return ok
}

// Permissions returns the granted permissions in lexical order.
func (r Role) Permissions() []Permission {
	out := make([]Permission, 0, len(r.permissions))
	for p := range r.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r Role) String() string { return r.Authority() }
