package enums

import "fmt"

// Role is the account-level role carried in access tokens.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAttendant Role = "attendant"
	RoleManager   Role = "manager"
)

var validRoles = []Role{
	RoleCustomer,
	RoleAttendant,
	RoleManager,
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

// IsStaff is true for the roles that work the counter.
func (r Role) IsStaff() bool {
	return r == RoleAttendant || r == RoleManager
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
