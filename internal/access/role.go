package access

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Role is a user's standing within one organization. Higher values grant more privilege.
type Role int

// Role constants, ordered from least to most privileged.
const (
	RoleGuest  Role = iota // no membership row
	RoleMember             // regular community member
	RoleAdmin              // organization administrator
	RoleOwner              // full control including team management
)

var roleNames = [...]string{
	RoleGuest:  "guest",
	RoleMember: "member",
	RoleAdmin:  "admin",
	RoleOwner:  "owner",
}

// AllRoles lists every role in ascending privilege order.
func AllRoles() []Role {
	return []Role{RoleGuest, RoleMember, RoleAdmin, RoleOwner}
}

// ParseRole converts a stored role name into a Role. Unknown names are rejected
// rather than mapped to a default.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, r := range AllRoles() {
		if roleNames[r] == name {
			return r, nil
		}
	}
	return RoleGuest, fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r >= RoleGuest && r <= RoleOwner
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// AtLeast reports whether r is as privileged as min or more.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// RolesAtLeast returns every role with privilege >= min, most privileged first.
// It panics on an undefined role: an empty result would admit any member.
func RolesAtLeast(min Role) []Role {
	if !min.Valid() {
		panic(fmt.Sprintf("access: RolesAtLeast(%d): undefined role", int(min)))
	}
	var roles []Role
	for r := RoleOwner; r >= min && r >= RoleGuest; r-- {
		roles = append(roles, r)
	}
	return roles
}

// MarshalJSON encodes the role as its lower-case name.
func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid role %d", int(r))
	}
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a role name.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("role must be a string: %w", err)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value stores the role as its name so rows stay readable by other services.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot store invalid role %d", int(r))
	}
	return r.String(), nil
}

// Scan reads a role name column.
func (r *Role) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("role column is null")
	default:
		return fmt.Errorf("unsupported role column type %T", src)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
