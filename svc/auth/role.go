package auth

import (
	"fmt"
	"strings"
)

// Role is a privilege level. Roles are totally ordered:
// RoleUser < RoleManager < RoleAdmin < RoleSuperuser.
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleManager
	RoleAdmin
	RoleSuperuser
)

var roleNames = map[Role]string{
	RoleUser:      "user",
	RoleManager:   "manager",
	RoleAdmin:     "admin",
	RoleSuperuser: "superuser",
}

// Roles lists every valid role in ascending order.
func Roles() []Role {
	return []Role{RoleUser, RoleManager, RoleAdmin, RoleSuperuser}
}

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleSuperuser
}

// String returns the lowercase wire name.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// Compare returns -1, 0 or +1 depending on whether r ranks below, equal to
// or above other.
func (r Role) Compare(other Role) int {
	switch {
	case r < other:
		return -1
	case r > other:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r ranks equal to or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r >= min
}

// MarshalText encodes r by name so numeric ranks never leak to clients.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: invalid role %d", ErrValidation, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText accepts names case-insensitively.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
