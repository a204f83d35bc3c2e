package rbac

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is a capability bundle assignable to a user. The zero value is
// StandardUser, which every user holds implicitly even without assignment rows.
type Role int

const (
	StandardUser Role = iota
	Admin
	Creator
	Verifier
)

var roleNames = map[Role]string{
	StandardUser: "user",
	Admin:        "admin",
	Creator:      "creator",
	Verifier:     "verifier",
}

var titleCaser = cases.Title(language.English)

// AllRoles lists every role in declaration order.
func AllRoles() []Role {
	return []Role{StandardUser, Admin, Creator, Verifier}
}

// ParseRole converts the stored tag into a Role.
func ParseRole(raw string) (Role, error) {
	name := strings.TrimSpace(strings.ToLower(raw))
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return StandardUser, fmt.Errorf("rbac: unknown role %q", raw)
}

// String returns the stored tag.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Label returns the display name.
func (r Role) Label() string {
	return titleCaser.String(r.String())
}

// MarshalText encodes the role as its tag.
func (r Role) MarshalText() ([]byte, error) {
	if _, ok := roleNames[r]; !ok {
		return nil, fmt.Errorf("rbac: invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role tag.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is the set of roles explicitly assigned to a user.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether the role is explicitly held.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// Sorted returns the roles ordered alphabetically by tag.
func (s RoleSet) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Primary returns the alphabetically first role, or StandardUser for an empty set.
func (s RoleSet) Primary() Role {
	sorted := s.Sorted()
	if len(sorted) == 0 {
		return StandardUser
	}
	return sorted[0]
}
