package auth

import "strings"

// Role is the user's role
type Role string

const (
	// RoleUser is the default role for registered accounts
	RoleUser Role = "user"
	// RoleSPM is a site project manager
	RoleSPM Role = "spm"
	// RoleSupervisor can list accounts
	RoleSupervisor Role = "supervisor"
	// RoleAdmin can list and delete accounts
	RoleAdmin Role = "admin"
)

// DefaultRole is assigned when registration does not set one
const DefaultRole = RoleUser

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleSPM, RoleSupervisor, RoleAdmin:
		return true
	default:
		return false
	}
}

// In reports whether r is a member of roles
func (r Role) In(roles ...Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleUser,
		RoleSPM,
		RoleSupervisor,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(roleStr)))
	return role, role.IsValid()
}
