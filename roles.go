package account

// UserRole is the user's role
type UserRole = string

const (
	// RoleMember is a regular user (i.e. manage their own account)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. manage any account)
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleMember, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type. Role strings
// arrive from UI selectors and are validated at the store boundary, we
// never persist a free form string.
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleMember,
		RoleAdmin,
	}
}
