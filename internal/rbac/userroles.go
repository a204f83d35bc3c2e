package rbac

import "sort"

// UserRoleSet is the per-user view of the assignment table.
type UserRoleSet struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	Roles    []Role `json:"roles"`
	HasRoles bool   `json:"has_roles"`
}

// GroupAssignments folds assignment rows into one set per user. Placeholder
// rows (nil role) keep the user in the listing with no roles.
func GroupAssignments(rows []AssignmentRow) []UserRoleSet {
	byUser := make(map[string]*UserRoleSet)
	seen := make(map[string]RoleSet)
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.UserID == "" {
			continue
		}
		set, ok := byUser[row.UserID]
		if !ok {
			set = &UserRoleSet{UserID: row.UserID, Roles: []Role{}}
			byUser[row.UserID] = set
			seen[row.UserID] = RoleSet{}
			order = append(order, row.UserID)
		}
		if set.Email == "" {
			set.Email = row.Email
		}
		if row.Role == nil || seen[row.UserID].Has(*row.Role) {
			continue
		}
		seen[row.UserID][*row.Role] = struct{}{}
	}

	out := make([]UserRoleSet, 0, len(order))
	for _, id := range order {
		set := byUser[id]
		set.Roles = append(set.Roles, seen[id].Sorted()...)
		set.HasRoles = len(set.Roles) > 0
		out = append(out, *set)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Email != out[j].Email {
			return out[i].Email < out[j].Email
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// CountHolders returns how many users hold role.
func CountHolders(sets []UserRoleSet, role Role) int {
	n := 0
	for _, s := range sets {
		for _, r := range s.Roles {
			if r == role {
				n++
				break
			}
		}
	}
	return n
}
