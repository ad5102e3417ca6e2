package enums

import "fmt"

// Role is the caller role asserted by the identity provider.
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleAdministrator Role = "administrator"
	RoleOwner         Role = "owner"
)

var validRoles = []Role{
	RoleCustomer,
	RoleAdministrator,
	RoleOwner,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsBackOffice reports whether the role may use admin endpoints.
func (r Role) IsBackOffice() bool {
	return r == RoleAdministrator || r == RoleOwner
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
