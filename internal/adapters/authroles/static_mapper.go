package authroles

import (
	"slices"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
)

// StaticRoleMapper interprets the role names returned by the user directory.
type StaticRoleMapper struct {
	AdminRole string
}

// Default returns a mapper keyed on ROLE_ADMIN.
func Default() StaticRoleMapper {
	return StaticRoleMapper{AdminRole: domainauth.RoleAdmin}
}

// IsAdmin reports whether roles contains the admin role name exactly.
func (m StaticRoleMapper) IsAdmin(roles []string) bool {
	admin := m.AdminRole
	if admin == "" {
		admin = domainauth.RoleAdmin
	}
	return slices.Contains(roles, admin)
}
