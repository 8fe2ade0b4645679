package domain

// Role is a closed set of account roles
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Permission names a privileged capability
type Permission string

const (
	PermAdminRead   Permission = "admin:read"
	PermAdminCreate Permission = "admin:create"
	PermAdminUpdate Permission = "admin:update"
	PermAdminDelete Permission = "admin:delete"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {PermAdminRead, PermAdminCreate, PermAdminUpdate, PermAdminDelete},
	RoleUser:  {},
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns a copy of the role's permission set
func (r Role) Permissions() []Permission {
	perms := rolePermissions[r]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether the role grants p. Unknown roles grant nothing.
func (r Role) HasPermission(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller of a request
type Principal struct {
	UserID string
	Email  string
	Role   Role
}
